package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Parser reads RSS, Atom and JSON feeds into harvest items.
type Parser struct {
	fp *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{fp: gofeed.NewParser()}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	parsed, err := p.fp.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
		PublishedAt: parsed.PublishedParsed,
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, newItem(entry))
	}
	return metadata, items, nil
}

func newItem(entry *gofeed.Item) Item {
	item := Item{
		GUID:        cmp.Or(entry.GUID, entry.Link),
		Title:       strings.TrimSpace(entry.Title),
		Link:        entry.Link,
		Description: entry.Description,
		Content:     entry.Content,
		Authors:     authorNames(entry),
		Categories:  entry.Categories,
	}

	switch {
	case entry.PublishedParsed != nil:
		item.PublishedAt = entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		item.PublishedAt = entry.UpdatedParsed.UTC()
	}
	item.ContentHash = contentHash(item)
	return item
}

// contentHash identifies an item across harvests. Items without a GUID or
// link are identified by their title and text.
func contentHash(item Item) string {
	content := item.GUID
	if content == "" {
		content = fmt.Sprintf("%s|%s|%s", item.Title, item.Description, item.Content)
	}

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func authorNames(entry *gofeed.Item) []string {
	people := entry.Authors
	if len(people) == 0 && entry.Author != nil {
		people = []*gofeed.Person{entry.Author}
	}

	var names []string
	for _, person := range people {
		if person == nil {
			continue
		}
		if name := personName(person.Name, person.Email); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// personName renders "email (name)", falling back to whichever part is set.
func personName(name, email string) string {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	switch {
	case name != "" && email != "":
		return email + " (" + name + ")"
	case name != "":
		return name
	default:
		return email
	}
}

// Text returns the item's plain text: content, then description, then title.
func (i Item) Text() string {
	if text := PlainText(i.Content); text != "" {
		return text
	}
	if text := PlainText(i.Description); text != "" {
		return text
	}
	return i.Title
}

// PlainText strips HTML markup and collapses whitespace.
func PlainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
