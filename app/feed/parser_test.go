package feed

import (
	"testing"
	"time"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Community Requests</title>
    <link>https://example.com</link>
    <description>Requests from the community board</description>
    <language>en-us</language>
    <item>
      <title>Water prices</title>
      <link>https://example.com/requests/1</link>
      <description>&lt;p&gt;What happened to &lt;b&gt;water&lt;/b&gt; prices?&lt;/p&gt;</description>
      <guid>request-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>reporter@example.com (Field Reporter)</author>
      <category>news</category>
    </item>
    <item>
      <title>School schedule</title>
      <link>https://example.com/requests/2</link>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Community Requests" {
		t.Errorf("Expected title 'Community Requests', got: %s", metadata.Title)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.GUID != "request-1" {
		t.Errorf("Expected GUID 'request-1', got: %s", first.GUID)
	}
	if !first.PublishedAt.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected published date: %v", first.PublishedAt)
	}
	if len(first.Authors) != 1 {
		t.Fatalf("Expected 1 author, got: %v", first.Authors)
	}
	if first.Authors[0] != "reporter@example.com (Field Reporter)" {
		t.Errorf("Unexpected author: %s", first.Authors[0])
	}
	if got := first.Text(); got != "What happened to water prices?" {
		t.Errorf("Expected plain text from description, got: %q", got)
	}

	second := items[1]
	if second.GUID != "https://example.com/requests/2" {
		t.Errorf("Expected GUID to fall back to link, got: %s", second.GUID)
	}
	if got := second.Text(); got != "School schedule" {
		t.Errorf("Expected text to fall back to title, got: %q", got)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Requests</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Clinic hours</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">When is the clinic open?</content>
  </entry>
</feed>`

	_, items, err := NewParser().Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	item := items[0]
	if item.GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected GUID 'urn:uuid:entry-1', got: %s", item.GUID)
	}
	if item.PublishedAt.IsZero() {
		t.Error("Expected published date to fall back to updated date")
	}
	if got := item.Text(); got != "When is the clinic open?" {
		t.Errorf("Expected content text, got: %q", got)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	if _, _, err := NewParser().Run([]byte("not a feed")); err == nil {
		t.Error("Expected error for invalid feed")
	}
}

func TestPersonName(t *testing.T) {
	tests := []struct {
		name, email, expected string
	}{
		{"Jane", "jane@example.com", "jane@example.com (Jane)"},
		{"Jane", "", "Jane"},
		{"", "jane@example.com", "jane@example.com"},
		{" ", " ", ""},
	}

	for _, test := range tests {
		if got := personName(test.name, test.email); got != test.expected {
			t.Errorf("personName(%q, %q) = %q, expected %q", test.name, test.email, got, test.expected)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{"", ""},
		{"   ", ""},
		{"plain words", "plain words"},
		{"<p>Hello <em>there</em></p>\n<p>friend</p>", "Hello there friend"},
		{"Fish &amp; chips", "Fish & chips"},
	}

	for _, test := range tests {
		if got := PlainText(test.input); got != test.expected {
			t.Errorf("PlainText(%q) = %q, expected %q", test.input, got, test.expected)
		}
	}
}

func TestContentHash(t *testing.T) {
	a := contentHash(Item{GUID: "request-1", Title: "Water"})
	b := contentHash(Item{GUID: "request-1", Title: "Water prices", Description: "edited"})
	if a != b {
		t.Error("Expected hash to follow the GUID only")
	}
	if len(a) != 64 {
		t.Errorf("Expected hex sha256, got %q", a)
	}

	if contentHash(Item{GUID: "request-2"}) == a {
		t.Error("Expected different GUIDs to hash differently")
	}

	c := contentHash(Item{Title: "Water", Description: "one"})
	d := contentHash(Item{Title: "Water", Description: "two"})
	if c == d {
		t.Error("Expected items without GUID to hash their text")
	}
}
