package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	envPrefix = "DEDUPD_"
)

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DEDUPD_ENGINE_SIMILARITY_THRESHOLD, ...)
//  2. YAML config file
//  3. Hardcoded defaults
//
// Environment variables are uppercased with underscore separators and map
// onto YAML paths after the DEDUPD_ prefix:
//
//	DEDUPD_ENGINE_SIMILARITY_THRESHOLD -> engine.similarity_threshold
//	DEDUPD_LOGGING_LEVEL               -> logging.level
//
// The mapping only splits on the first underscore so multi-word keys like
// similarity_threshold survive.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	cfg := NewDefaultConfig()

	if configPath != "" {
		data, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envTransform maps DEDUPD_ENGINE_SIMILARITY_THRESHOLD to
// engine.similarity_threshold: strip the prefix, lowercase, and replace
// only the first underscore (the section separator) with a dot.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// readConfigFile reads the config file with a size cap.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}
