// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// DataDir is the directory holding the account directory file and the
	// per-account secret files.
	DataDir string

	// BreachURL is the base URL of the breach-database range endpoint.
	BreachURL string

	// BreachTimeout bounds a single exposure-check request.
	BreachTimeout time.Duration

	// LogLevel sets the zap logging level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.DataDir, "d", "data", "directory for vault data files")
	flag.StringVar(&options.BreachURL, "b", "https://api.pwnedpasswords.com", "breach database base URL")
	flag.DurationVar(&options.BreachTimeout, "t", 5*time.Second, "breach check timeout")
	flag.StringVar(&options.LogLevel, "l", "Info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		options.DataDir = dataDir
	}

	if breachURL := os.Getenv("BREACH_URL"); breachURL != "" {
		options.BreachURL = breachURL
	}

	return options
}
