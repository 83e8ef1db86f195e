package request

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	ContentTypeTranscribed = "transcribed"
	ContentTypeTranslated  = "translated"
	ContentTypeOriginal    = "original"

	ContentFormatText  = "text"
	ContentFormatAudio = "audio"
	ContentFormatVideo = "video"
	ContentFormatImage = "image"

	WorldOnline  = "online"
	WorldOffline = "offline"
)

var Topics = []string{"news", "health", "education", "culture", "technology", "other"}

var (
	ErrRevisionOutOfRange = errors.New("revision index out of range")
	// ErrConflict is returned by stores when a request changed after it was loaded.
	ErrConflict = errors.New("request was modified concurrently")
)

// Request is a user submission under curation. Descriptive attributes are set
// once; editable content lives in Revisions and is addressed by CurrentRevision.
type Request struct {
	ID             string
	AdaptorName    string
	AdaptorSource  string
	AdaptorTrusted bool
	ContentType    string
	ContentFormat  string
	World          string
	Posted         time.Time
	Processed      time.Time
	Broadcast      bool

	Revisions       []ContentRevision
	CurrentRevision int
	Suggestions     []*Suggestion

	// Version is the stored row version this copy was loaded at; zero until
	// the request is first saved.
	Version int
}

// New returns a request with a fresh id, posted and processed now.
func New(adaptorName, adaptorSource string) *Request {
	now := time.Now().UTC()
	return &Request{
		ID:            uuid.NewString(),
		AdaptorName:   adaptorName,
		AdaptorSource: adaptorSource,
		ContentType:   ContentTypeTranscribed,
		ContentFormat: ContentFormatText,
		World:         WorldOffline,
		Posted:        now,
		Processed:     now,
	}
}

func IsValidContentType(v string) bool {
	return v == ContentTypeTranscribed || v == ContentTypeTranslated || v == ContentTypeOriginal
}

func IsValidContentFormat(v string) bool {
	switch v {
	case ContentFormatText, ContentFormatAudio, ContentFormatVideo, ContentFormatImage:
		return true
	}
	return false
}

func IsValidWorld(v string) bool {
	return v == WorldOnline || v == WorldOffline
}

func IsValidTopic(v string) bool {
	return slices.Contains(Topics, v)
}

// SetContent applies update on top of the current revision and appends the
// result. The first call always creates revision 0; later calls that supply
// no field leave the log untouched.
func (r *Request) SetContent(update ContentUpdate) {
	if len(r.Revisions) > 0 && update.IsEmpty() {
		return
	}

	r.Revisions = append(r.Revisions, update.Apply(r.Content()))
	r.CurrentRevision = len(r.Revisions) - 1
}

// Revert moves the current pointer one revision back. History is never truncated.
func (r *Request) Revert() {
	if r.CurrentRevision > 0 {
		r.CurrentRevision--
	}
}

func (r *Request) SetCurrentRevision(index int) error {
	if index < 0 || index >= len(r.Revisions) {
		return fmt.Errorf("%w: %d (have %d revisions)", ErrRevisionOutOfRange, index, len(r.Revisions))
	}
	r.CurrentRevision = index
	return nil
}

func (r *Request) HasContent() bool {
	return len(r.Revisions) > 0
}

// Content returns the live revision, or the zero revision when nothing was set.
func (r *Request) Content() ContentRevision {
	if !r.HasContent() {
		return ContentRevision{}
	}
	return r.Revisions[r.CurrentRevision]
}

// ActiveRevisions returns revisions 0..CurrentRevision inclusive.
func (r *Request) ActiveRevisions() []ContentRevision {
	if !r.HasContent() {
		return nil
	}
	return slices.Clone(r.Revisions[:r.CurrentRevision+1])
}

func (r *Request) TextContent() string {
	return r.Content().TextContent
}

func (r *Request) ContentLanguage() string {
	return r.Content().ContentLanguage
}

func (r *Request) Language() string {
	return r.Content().Language
}

func (r *Request) Topic() string {
	return r.Content().Topic
}
