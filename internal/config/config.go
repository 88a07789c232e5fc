// Package config provides configuration loading for dedupd.
package config

import (
	"fmt"

	"github.com/fyrsmithlabs/dedupd/internal/logging"
	"github.com/fyrsmithlabs/dedupd/pkg/dedupe"
)

// Config is the full dedupd configuration.
type Config struct {
	Engine  EngineConfig   `koanf:"engine"`
	Logging logging.Config `koanf:"logging"`
}

// EngineConfig mirrors dedupe.Config with koanf tags.
type EngineConfig struct {
	// SimilarityThreshold is the hard clustering cutoff for perceptual and
	// embedding edges. Exact hash matches always qualify.
	SimilarityThreshold float64 `koanf:"similarity_threshold"`

	// ReviewThreshold is the lower bound of the "likely duplicate" band.
	ReviewThreshold float64 `koanf:"review_threshold"`

	// ReviewPolicy is "ignore" (single hard cutoff) or "flag" (keep
	// review-band edges and mark the affected groups).
	ReviewPolicy string `koanf:"review_policy"`

	// Workers bounds parallel pair evaluation. 0 means GOMAXPROCS.
	Workers int `koanf:"workers"`

	// BruteForceLimit is the batch size above which candidate indexes
	// replace exhaustive O(n^2) pair enumeration.
	BruteForceLimit int `koanf:"brute_force_limit"`

	// CandidateTopK is the approximate-neighbor count per file in
	// candidate mode.
	CandidateTopK int `koanf:"candidate_top_k"`
}

// NewDefaultConfig returns the documented defaults.
func NewDefaultConfig() *Config {
	engine := dedupe.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			SimilarityThreshold: engine.SimilarityThreshold,
			ReviewThreshold:     engine.ReviewThreshold,
			ReviewPolicy:        string(engine.ReviewPolicy),
			Workers:             engine.Workers,
			BruteForceLimit:     engine.BruteForceLimit,
			CandidateTopK:       engine.CandidateTopK,
		},
		Logging: *logging.NewDefaultConfig(),
	}
}

// EngineConfig converts to the engine's own config type.
func (c *Config) EngineConfig() dedupe.Config {
	return dedupe.Config{
		SimilarityThreshold: c.Engine.SimilarityThreshold,
		ReviewThreshold:     c.Engine.ReviewThreshold,
		ReviewPolicy:        dedupe.ReviewPolicy(c.Engine.ReviewPolicy),
		Workers:             c.Engine.Workers,
		BruteForceLimit:     c.Engine.BruteForceLimit,
		CandidateTopK:       c.Engine.CandidateTopK,
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	engine := c.EngineConfig()
	engine.ApplyDefaults()
	if err := engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
