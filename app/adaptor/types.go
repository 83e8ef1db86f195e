package adaptor

import (
	"time"

	"github.com/lysyi3m/request-hub/app/feed"
)

// RemoteAdaptor is a content source allowed to submit requests with its API key.
type RemoteAdaptor struct {
	Name      string
	Source    string
	Contact   string
	Trusted   bool
	APIKey    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *RemoteAdaptor) GetName() string {
	return a.Name
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	Source   string         `yaml:"source"`
	Contact  string         `yaml:"contact"`
	Trusted  bool           `yaml:"trusted"`
	URL      string         `yaml:"url"` // optional feed to harvest requests from
	Settings ConfigSettings `yaml:"settings"`
	Defaults ConfigDefaults `yaml:"defaults"`
	Filters  []feed.Filter  `yaml:"filters"`
}

func (c *Config) GetName() string {
	return c.Name
}

// Harvestable reports whether the scheduler should pull requests from this adaptor.
func (c *Config) Harvestable() bool {
	return c.URL != "" && c.Settings.Enabled
}

func (c *Config) RemoteAdaptor() *RemoteAdaptor {
	return &RemoteAdaptor{
		Name:    c.Name,
		Source:  c.Source,
		Contact: c.Contact,
		Trusted: c.Trusted,
	}
}

type ConfigSettings struct {
	Enabled         bool `yaml:"enabled"`
	RefreshInterval int  `yaml:"refresh_interval"` // seconds
	MaxItems        int  `yaml:"max_items"`
	Timeout         int  `yaml:"timeout"`         // seconds
	ExtractContent  bool `yaml:"extract_content"` // fetch item pages when the feed carries no text
}

// ConfigDefaults seed the attributes and first revision of harvested requests.
type ConfigDefaults struct {
	ContentType     string `yaml:"content_type"`
	ContentFormat   string `yaml:"content_format"`
	World           string `yaml:"world"`
	Language        string `yaml:"language"`
	ContentLanguage string `yaml:"content_language"`
	Topic           string `yaml:"topic"`
}
