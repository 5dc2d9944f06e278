package main

import (
	"flag"
	"log"
	"os"

	"heliowatch/internal/di"
	"heliowatch/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s backend=%s", cfg.Environment, cfg.Backend.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("clickhouse: schema ready db=%s", cfg.ClickHouse.Database)
	log.Printf("groundlink: relay=%s sampler=%s", cfg.Groundlink.WebSocketURL, cfg.SamplerInterval())

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
