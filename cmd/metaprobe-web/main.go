package main

import (
	"flag"
	stdlog "log"

	"github.com/On-Jun9/MetaProbe/internal/config"
	"github.com/On-Jun9/MetaProbe/internal/log"
	"github.com/On-Jun9/MetaProbe/internal/metadata"
	"github.com/On-Jun9/MetaProbe/internal/pipeline"
	"github.com/On-Jun9/MetaProbe/internal/resolver"
	"github.com/On-Jun9/MetaProbe/internal/web"
)

var (
	version = "dev" // set by ldflags during build
)

func main() {
	addr := flag.String("addr", "", "HTTP server address (default from config)")
	cfgFile := flag.String("config", "", "config file path")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *cfgFile != "" {
		loaded, err := config.LoadFromFile(*cfgFile)
		if err != nil {
			stdlog.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		stdlog.Fatal(err)
	}
	if *addr == "" {
		*addr = cfg.ListenAddr
	}

	logger, err := log.New(cfg.LogFile, cfg.LogJSON, !cfg.LogJSON)
	if err != nil {
		stdlog.Printf("logging disabled: %v", err)
		logger = log.Discard()
	}
	defer logger.Close()

	p := pipeline.New(cfg, metadata.NewRegistry(), resolver.New(cfg), logger)

	server := web.NewServer(p, cfg)
	server.SetVersion(version)

	if err := server.Start(*addr); err != nil {
		stdlog.Fatal(err)
	}
}
