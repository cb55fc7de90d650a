package webui

type Config struct {
	ListenAddr        string
	AllowedOrigin     string
	DefaultCalendarID string
}

type Option func(*Config)

func WithListenAddr(addr string) Option {
	return func(c *Config) {
		c.ListenAddr = addr
	}
}

func WithAllowedOrigin(origin string) Option {
	return func(c *Config) {
		c.AllowedOrigin = origin
	}
}

// WithDefaultCalendarID sets the calendar used by requests that do not name
// one explicitly.
func WithDefaultCalendarID(id string) Option {
	return func(c *Config) {
		c.DefaultCalendarID = id
	}
}

func NewConfig(opts ...Option) *Config {
	c := &Config{
		ListenAddr:    ":3100",
		AllowedOrigin: "*",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
