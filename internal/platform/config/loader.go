package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "avatar-server-go/internal/platform/errors"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = ".config.yaml"

// Loader reads the yaml configuration, after optionally loading a .env file
// so that ${VAR} references in the config can resolve.
type Loader struct {
	path      string
	useDotEnv bool
}

func NewLoader() *Loader {
	return &Loader{
		path:      DefaultPath,
		useDotEnv: true,
	}
}

// WithPath overrides the configuration file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the configuration file, expands environment references and
// validates the result. A missing file yields the built-in defaults.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		if err := godotenv.Load(); err != nil {
			fmt.Println("no .env file found, using process environment")
		}
	}

	cfg := Default()
	path := l.path

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		path = ""
	case err != nil:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read config file", err)
	default:
		expanded := os.ExpandEnv(string(raw))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "parse config file", err)
		}
	}

	// API keys from defaults still carry ${VAR} references when the file was absent.
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	cfg.STT.APIKey = os.ExpandEnv(cfg.STT.APIKey)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

// Validate checks structural invariants of a configuration.
func Validate(cfg *Config) error {
	if cfg.Cache.MaxEntries <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "cache max_entries must be positive")
	}
	if cfg.Cache.TTLSec <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "cache ttl must be positive")
	}
	if cfg.Synthesis.MaxConcurrent <= 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "synthesis max_concurrent must be positive")
	}
	if len(cfg.Services) == 0 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate", "no services configured")
	}

	seen := make(map[string]bool, len(cfg.Services))
	for _, svc := range cfg.Services {
		if svc.Name == "" {
			return platformerrors.New(platformerrors.KindConfig, "config.validate", "service with empty name")
		}
		if seen[svc.Name] {
			return platformerrors.New(platformerrors.KindConfig, "config.validate",
				fmt.Sprintf("duplicate service %q", svc.Name))
		}
		seen[svc.Name] = true
		if svc.Port < 1 || svc.Port > 65535 {
			return platformerrors.New(platformerrors.KindConfig, "config.validate",
				fmt.Sprintf("service %q has invalid port %d", svc.Name, svc.Port))
		}
		if svc.StartupSec <= 0 {
			return platformerrors.New(platformerrors.KindConfig, "config.validate",
				fmt.Sprintf("service %q has invalid startup_timeout", svc.Name))
		}
	}

	return nil
}
