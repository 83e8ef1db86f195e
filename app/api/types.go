package api

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"github.com/lysyi3m/request-hub/app/adaptor"
	"github.com/lysyi3m/request-hub/app/database"
	"github.com/lysyi3m/request-hub/app/feed"
	"github.com/lysyi3m/request-hub/app/harvest"
	"github.com/lysyi3m/request-hub/app/playlist"
	"github.com/lysyi3m/request-hub/app/request"
	"github.com/lysyi3m/request-hub/app/tasks"
)

type GeneratorInterface interface {
	Run(p *playlist.Playlist) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	requests    database.RequestStore
	playlists   database.PlaylistStore
	builder     *playlist.Builder
	history     *harvest.History
	registry    *adaptor.Registry
	configCache *adaptor.ConfigCache
	generator   GeneratorInterface
	scheduler   tasks.TaskSchedulerInterface
}

// Request payloads

type ContentInput struct {
	request.ContentUpdate
}

// Validate checks language tags and the topic when they are supplied.
func (in ContentInput) Validate() error {
	for name, tag := range map[string]*string{
		"content_language": in.ContentLanguage,
		"language":         in.Language,
	} {
		if tag == nil || *tag == "" {
			continue
		}
		if _, err := language.Parse(*tag); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, *tag, err)
		}
	}

	if in.Topic != nil && *in.Topic != "" && !request.IsValidTopic(*in.Topic) {
		return fmt.Errorf("invalid topic %q", *in.Topic)
	}
	return nil
}

type CreateRequestInput struct {
	ContentInput
	AdaptorName   string   `json:"adaptor_name"`
	AdaptorSource string   `json:"adaptor_source"`
	ContentType   string   `json:"content_type"`
	ContentFormat string   `json:"content_format"`
	World         string   `json:"world"`
	Suggestions   []string `json:"suggestions"`
}

func (in CreateRequestInput) Validate() error {
	if in.ContentType != "" && !request.IsValidContentType(in.ContentType) {
		return fmt.Errorf("invalid content_type %q", in.ContentType)
	}
	if in.ContentFormat != "" && !request.IsValidContentFormat(in.ContentFormat) {
		return fmt.Errorf("invalid content_format %q", in.ContentFormat)
	}
	if in.World != "" && !request.IsValidWorld(in.World) {
		return fmt.Errorf("invalid world %q", in.World)
	}
	return in.ContentInput.Validate()
}

// Build creates the request with its first revision and suggestions.
func (in CreateRequestInput) Build(adaptorName, adaptorSource string, trusted bool) (*request.Request, error) {
	req := request.New(adaptorName, adaptorSource)
	req.AdaptorTrusted = trusted
	if in.ContentType != "" {
		req.ContentType = in.ContentType
	}
	if in.ContentFormat != "" {
		req.ContentFormat = in.ContentFormat
	}
	if in.World != "" {
		req.World = in.World
	}

	req.SetContent(in.ContentUpdate)

	for _, raw := range in.Suggestions {
		if _, err := req.SuggestURL(raw); err != nil {
			return nil, err
		}
	}
	return req, nil
}

type RevertInput struct {
	Revision *int `json:"revision"`
}

type SuggestionInput struct {
	URL string `json:"url" binding:"required"`
}

// Responses

type RevisionView struct {
	TextContent     string `json:"text_content"`
	ContentLanguage string `json:"content_language"`
	Language        string `json:"language"`
	Topic           string `json:"topic"`
}

type SuggestionView struct {
	URL       string `json:"url"`
	QuotedURL string `json:"quoted_url"`
	Votes     int    `json:"votes"`
}

type RequestView struct {
	ID              string           `json:"id"`
	AdaptorName     string           `json:"adaptor_name"`
	AdaptorSource   string           `json:"adaptor_source"`
	AdaptorTrusted  bool             `json:"adaptor_trusted"`
	ContentType     string           `json:"content_type"`
	ContentFormat   string           `json:"content_format"`
	World           string           `json:"world"`
	Posted          time.Time        `json:"posted"`
	Processed       time.Time        `json:"processed"`
	Broadcast       bool             `json:"broadcast"`
	Content         RevisionView     `json:"content"`
	CurrentRevision int              `json:"current_revision"`
	Revisions       []RevisionView   `json:"revisions"`
	Suggestions     []SuggestionView `json:"suggestions"`
}

func newRevisionView(rev request.ContentRevision) RevisionView {
	return RevisionView{
		TextContent:     rev.TextContent,
		ContentLanguage: rev.ContentLanguage,
		Language:        rev.Language,
		Topic:           rev.Topic,
	}
}

func newSuggestionView(s *request.Suggestion) SuggestionView {
	return SuggestionView{URL: s.URL, QuotedURL: s.QuotedURL(), Votes: s.Votes}
}

// newRequestView lists active revisions only and suggestions by votes.
func newRequestView(r *request.Request) RequestView {
	view := RequestView{
		ID:              r.ID,
		AdaptorName:     r.AdaptorName,
		AdaptorSource:   r.AdaptorSource,
		AdaptorTrusted:  r.AdaptorTrusted,
		ContentType:     r.ContentType,
		ContentFormat:   r.ContentFormat,
		World:           r.World,
		Posted:          r.Posted,
		Processed:       r.Processed,
		Broadcast:       r.Broadcast,
		Content:         newRevisionView(r.Content()),
		CurrentRevision: r.CurrentRevision,
		Revisions:       []RevisionView{},
		Suggestions:     []SuggestionView{},
	}

	for _, rev := range r.ActiveRevisions() {
		view.Revisions = append(view.Revisions, newRevisionView(rev))
	}
	for _, s := range r.SortedSuggestions() {
		view.Suggestions = append(view.Suggestions, newSuggestionView(s))
	}
	return view
}

func newRequestViews(reqs []*request.Request) []RequestView {
	views := make([]RequestView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, newRequestView(r))
	}
	return views
}

type PlaylistEntryView struct {
	RequestID string    `json:"request_id"`
	URL       string    `json:"url"`
	AddedAt   time.Time `json:"added_at"`
}

type PlaylistView struct {
	ID      string              `json:"id"`
	Date    string              `json:"date"`
	Entries []PlaylistEntryView `json:"entries"`
}

func newPlaylistView(p *playlist.Playlist) PlaylistView {
	view := PlaylistView{
		ID:      p.ID,
		Date:    p.Date.Format("2006-01-02"),
		Entries: []PlaylistEntryView{},
	}
	for _, e := range p.Entries {
		view.Entries = append(view.Entries, PlaylistEntryView{RequestID: e.RequestID, URL: e.URL, AddedAt: e.AddedAt})
	}
	return view
}

type AdaptorView struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Contact     string    `json:"contact"`
	Trusted     bool      `json:"trusted"`
	HasKey      bool      `json:"has_key"`
	Harvestable bool      `json:"harvestable"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newAdaptorView(a adaptor.RemoteAdaptor) AdaptorView {
	return AdaptorView{
		Name:      a.Name,
		Source:    a.Source,
		Contact:   a.Contact,
		Trusted:   a.Trusted,
		HasKey:    a.APIKey != "",
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// adaptorName lets the harvest history look up an adaptor by name alone.
type adaptorName string

func (n adaptorName) GetName() string {
	return string(n)
}
