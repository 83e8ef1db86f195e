package playlist

import (
	"time"
)

const keyLayout = "20060102"

// Playlist is the daily bucket of broadcast content, keyed by YYYYMMDD.
type Playlist struct {
	ID      string
	Date    time.Time
	Entries []Entry
}

// Entry references the originating request and the suggestion URL selected for it.
type Entry struct {
	RequestID string
	URL       string
	AddedAt   time.Time
}

// Timestamp returns the local calendar date of t and its storage key.
func Timestamp(t time.Time) (time.Time, string) {
	local := t.In(time.Local)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	return date, date.Format(keyLayout)
}

// ParseKey converts a YYYYMMDD key back into a local date.
func ParseKey(key string) (time.Time, error) {
	return time.ParseInLocation(keyLayout, key, time.Local)
}

func (p *Playlist) Contains(requestID string) bool {
	for _, e := range p.Entries {
		if e.RequestID == requestID {
			return true
		}
	}
	return false
}
