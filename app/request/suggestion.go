package request

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/purell"
)

const urlNormalization = purell.FlagsSafe | purell.FlagRemoveFragment

var (
	ErrInvalidURL    = errors.New("invalid suggestion URL")
	ErrNegativeVotes = errors.New("votes must be non-negative")
)

type DuplicateSuggestionError struct {
	RequestID string
	URL       string
}

func (e *DuplicateSuggestionError) Error() string {
	return fmt.Sprintf("url %s already suggested for request %s", e.URL, e.RequestID)
}

// Suggestion is a proposed content item competing for votes under one request.
type Suggestion struct {
	RequestID string
	URL       string
	Votes     int
}

func (s *Suggestion) Vote() {
	s.Votes++
}

func (s *Suggestion) SetVotes(votes int) error {
	if votes < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeVotes, votes)
	}
	s.Votes = votes
	return nil
}

// QuotedURL returns the URL percent-encoded as a single query component.
func (s *Suggestion) QuotedURL() string {
	return url.QueryEscape(s.URL)
}

// NormalizeURL canonicalizes a suggestion URL so equal resources compare equal.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	normalized, err := purell.NormalizeURLString(raw, urlNormalization)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	parsed, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return normalized, nil
}

// SuggestURL appends a new zero-vote suggestion. A URL that normalizes to an
// existing suggestion is rejected without touching the ledger.
func (r *Request) SuggestURL(raw string) (*Suggestion, error) {
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return nil, err
	}

	if r.Suggestion(normalized) != nil {
		return nil, &DuplicateSuggestionError{RequestID: r.ID, URL: normalized}
	}

	s := &Suggestion{RequestID: r.ID, URL: normalized}
	r.Suggestions = append(r.Suggestions, s)
	return s, nil
}

// Suggestion finds a suggestion by URL, normalizing the argument first.
func (r *Request) Suggestion(rawURL string) *Suggestion {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return nil
	}
	for _, s := range r.Suggestions {
		if s.URL == key {
			return s
		}
	}
	return nil
}

func (r *Request) HasSuggestions() bool {
	return len(r.Suggestions) > 0
}

// SortedSuggestions orders suggestions by votes descending. Equal vote counts
// keep suggestion order.
func (r *Request) SortedSuggestions() []*Suggestion {
	sorted := slices.Clone(r.Suggestions)
	slices.SortStableFunc(sorted, func(a, b *Suggestion) int {
		return b.Votes - a.Votes
	})
	return sorted
}

func (r *Request) TopSuggestion() (*Suggestion, bool) {
	if !r.HasSuggestions() {
		return nil, false
	}
	return r.SortedSuggestions()[0], true
}
