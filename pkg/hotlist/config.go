package hotlist

// DefaultTimeQuantum is the duration of one fingerprint time-code unit in
// seconds, matching the extractor's frame hop.
const DefaultTimeQuantum = 0.064

type Config struct {
	DBPath      string
	TimeQuantum float64
	Logger      Logger
	Storage     Storage
	Sink        Sink
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTimeQuantum(seconds float64) Option {
	return func(c *Config) {
		c.TimeQuantum = seconds
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithSink registers a consumer for the detection record stream.
func WithSink(sink Sink) Option {
	return func(c *Config) {
		c.Sink = sink
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:      "hotlist.sqlite3",
		TimeQuantum: DefaultTimeQuantum,
		Logger:      nil,
	}
}
