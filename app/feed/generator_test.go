package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/request-hub/app/playlist"
)

func testPlaylist() *playlist.Playlist {
	date := time.Date(2014, 4, 1, 0, 0, 0, 0, time.UTC)
	return &playlist.Playlist{
		ID:   "20140401",
		Date: date,
		Entries: []playlist.Entry{
			{RequestID: "req-1", URL: "http://example.com/a?x=1&y=2", AddedAt: date.Add(time.Hour)},
			{RequestID: "req-2", URL: "http://example.com/b", AddedAt: date.Add(2 * time.Hour)},
		},
	}
}

func TestGeneratePlaylistRSS(t *testing.T) {
	rss, err := NewGenerator("https://hub.example.com/", "1.2.0").Run(testPlaylist())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<rss version="2.0"`,
		"<title>Playlist 2014-04-01</title>",
		`<atom:link href="https://hub.example.com/playlists/20140401" rel="self" type="application/rss+xml" />`,
		"<pubDate>Tue, 01 Apr 2014 00:00:00 +0000</pubDate>",
		"<lastBuildDate>Tue, 01 Apr 2014 02:00:00 +0000</lastBuildDate>",
		"<generator>Request-Hub/1.2.0</generator>",
		`<guid isPermaLink="false">req-1</guid>`,
		"<link>http://example.com/a?x=1&amp;y=2</link>",
		"<pubDate>Tue, 01 Apr 2014 01:00:00 +0000</pubDate>",
		`<guid isPermaLink="false">req-2</guid>`,
		"</channel>\n</rss>",
	}

	for _, s := range expected {
		if !strings.Contains(rss, s) {
			t.Errorf("RSS should contain %q", s)
		}
	}

	if strings.Index(rss, "req-1") > strings.Index(rss, "req-2") {
		t.Error("Entries should keep playlist order")
	}
}

func TestGenerateEmptyPlaylist(t *testing.T) {
	p := testPlaylist()
	p.Entries = nil

	rss, err := NewGenerator("http://localhost:8080", "dev").Run(p)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("Empty playlist should not contain items")
	}
	if !strings.Contains(rss, "<lastBuildDate>Tue, 01 Apr 2014 00:00:00 +0000</lastBuildDate>") {
		t.Error("Empty playlist should use its date as last build date")
	}
}

func TestGenerateNilPlaylist(t *testing.T) {
	if _, err := NewGenerator("", "dev").Run(nil); err == nil {
		t.Error("Expected error for nil playlist")
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"http://example.com", true},
		{"https://example.com", true},
		{"ftp://example.com", false},
		{"http://", false},
		{"not-a-url", false},
	}

	for _, test := range tests {
		if result := isURL(test.input); result != test.expected {
			t.Errorf("For input '%s', expected %v, got %v", test.input, test.expected, result)
		}
	}
}
