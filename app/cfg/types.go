package cfg

type Cfg struct {
	// Storage
	DBPath      string
	AdaptorsDir string

	// Application configuration
	Port              string
	BaseUrl           string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Broadcasting
	BroadcastSchedule string
	BroadcastLimit    int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// PublicURL is the base for links the service hands out.
func (c *Cfg) PublicURL() string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return "http://localhost:" + c.Port
}
