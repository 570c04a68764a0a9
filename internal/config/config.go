package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Server contains the HTTP surface configuration.
type Server struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	ResultsKeep    int      `toml:"results_keep"`
}

// Index contains the reference index configuration.
type Index struct {
	DBPath string `toml:"db_path"`
}

// Matching contains the engine tunables.
type Matching struct {
	TimeQuantum float64 `toml:"time_quantum"`
}

// Config is the full configuration for the hotlist binaries.
type Config struct {
	Server   Server   `toml:"server"`
	Index    Index    `toml:"index"`
	Matching Matching `toml:"matching"`
}

func Default() Config {
	return Config{
		Server: Server{
			Port:           8080,
			AllowedOrigins: []string{"*"},
			ResultsKeep:    256,
		},
		Index: Index{
			DBPath: "hotlist.sqlite3",
		},
		Matching: Matching{
			TimeQuantum: 0.064,
		},
	}
}

// Load reads a TOML config file on top of the defaults. A missing path is not
// an error; the defaults apply. HOTLIST_DB_PATH overrides the index path.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("open config: %w", err)
			}
		} else {
			defer file.Close()
			decoder := toml.NewDecoder(file)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if env := os.Getenv("HOTLIST_DB_PATH"); env != "" {
		cfg.Index.DBPath = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Matching.TimeQuantum <= 0 {
		return fmt.Errorf("time_quantum must be positive, got %v", c.Matching.TimeQuantum)
	}
	if c.Server.ResultsKeep <= 0 {
		return fmt.Errorf("results_keep must be positive, got %d", c.Server.ResultsKeep)
	}
	return nil
}
