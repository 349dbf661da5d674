// Package logger is the plugin host's ambient structured logger, a
// thin wrapper over zerolog shared by every component that needs to
// log (loader, adapters, table registry).
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log is the package-level logger, configured by Initialize.
var Log zerolog.Logger

// Initialize sets up the global logger. pretty selects a human-readable
// console writer (development); otherwise records are emitted as JSON.
func Initialize(level string, pretty bool) {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Log = log.With().
		Str("service", "pluginhost").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("logger initialized")
}

// GetLogger returns the global logger instance.
func GetLogger() *zerolog.Logger {
	return &Log
}

// Component returns a logger tagged with the given component name,
// e.g. logger.Component("loader") or logger.Component("table-registry").
func Component(name string) *zerolog.Logger {
	l := Log.With().Str("component", name).Logger()
	return &l
}

// Plugin returns a logger tagged with both a component and the name of
// the plugin it is acting on behalf of.
func Plugin(component, pluginName string) *zerolog.Logger {
	l := Log.With().Str("component", component).Str("plugin", pluginName).Logger()
	return &l
}
