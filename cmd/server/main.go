package main

import (
	"flag"
	"log"

	"github.com/soundtrace/hotlist/internal/config"
	"github.com/soundtrace/hotlist/pkg/hotlist"
)

var (
	configPath string
	port       int
	dbPath     string
)

func init() {
	flag.StringVar(&configPath, "config", "hotlist.toml", "Path to TOML configuration file")
	flag.IntVar(&port, "port", 0, "HTTP server port (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to the reference index database (overrides config)")
}

func main() {
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		cfg.Index.DBPath = dbPath
	}

	results := newResultsRing(cfg.Server.ResultsKeep)

	service, err := hotlist.NewService(
		hotlist.WithDBPath(cfg.Index.DBPath),
		hotlist.WithTimeQuantum(cfg.Matching.TimeQuantum),
		hotlist.WithSink(results.Append),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, cfg, results)
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
