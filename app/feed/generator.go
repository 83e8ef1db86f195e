package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/request-hub/app/playlist"
)

// Generator renders a daily playlist as an RSS 2.0 channel.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(p *playlist.Playlist) (string, error) {
	if p == nil {
		return "", fmt.Errorf("playlist is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", fmt.Sprintf("Playlist %s", p.Date.Format("2006-01-02")), 4)
	selfLink := fmt.Sprintf("%s/playlists/%s", g.baseURL, p.ID)
	g.writeElement(&buf, "link", selfLink, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Broadcast suggestions for %s", p.Date.Format("January 2, 2006")), 4)
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	g.writeElement(&buf, "pubDate", p.Date.Format(time.RFC1123Z), 4)

	lastBuildDate := p.Date
	if n := len(p.Entries); n > 0 {
		lastBuildDate = p.Entries[n-1].AddedAt
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Request-Hub/%s", g.version), 4)

	for _, entry := range p.Entries {
		g.writeEntry(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeEntry(buf *bytes.Buffer, entry playlist.Entry) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(entry.RequestID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", entry.URL, 6)
	if isURL(entry.URL) {
		g.writeElement(buf, "link", entry.URL, 6)
	}
	g.writeElement(buf, "pubDate", entry.AddedAt.Format(time.RFC1123Z), 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
