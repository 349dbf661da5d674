package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/streamspace/pluginhost/internal/logger"
	"github.com/streamspace/pluginhost/internal/pluginhost"
	"github.com/streamspace/pluginhost/internal/table"
)

func main() {
	var (
		logLevel  = getEnv("PLUGINHOST_LOG_LEVEL", "info")
		logPretty = getEnv("PLUGINHOST_LOG_PRETTY", "true") == "true"
		minAPI    = flag.String("min-api-version", "1.0.0", "minimum supported plugin API version")
		maxAPI    = flag.String("max-api-version", "2.0.0", "maximum supported plugin API version")
		config    = flag.String("config", "{}", "JSON init config passed to every loaded plugin")
	)
	flag.Parse()

	logger.Initialize(logLevel, logPretty)
	log := logger.Component("cmd")

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pluginhost-demo [flags] plugin.so [plugin.so ...]")
		os.Exit(2)
	}

	loader, err := pluginhost.NewLoader(*minAPI, *maxAPI)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid API version range")
	}
	tables := table.NewRegistry()

	var loaded []*pluginhost.Plugin
	for _, path := range paths {
		p, err := loader.LoadPath(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("failed to load plugin")
			continue
		}
		if err := p.Init(*config, tables); err != nil {
			log.Error().Err(err).Str("plugin", p.Name()).Msg("failed to initialize plugin")
			continue
		}
		log.Info().
			Str("plugin", p.Name()).
			Str("version", p.Version()).
			Str("capabilities", p.Capabilities().String()).
			Msg("plugin ready")
		loaded = append(loaded, p)
	}

	defer func() {
		for _, p := range loaded {
			if err := p.Destroy(); err != nil {
				log.Error().Err(err).Str("plugin", p.Name()).Msg("failed to destroy plugin")
			}
			tables.ReleaseConsumer(p.Name())
		}
	}()

	if len(loaded) == 0 {
		log.Fatal().Msg("no plugins loaded successfully")
	}

	log.Info().Int("count", len(loaded)).Msg("all plugins loaded and initialized")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
