package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dedupd/internal/config"
	"github.com/fyrsmithlabs/dedupd/internal/logging"
	"github.com/fyrsmithlabs/dedupd/internal/manifest"
	"github.com/fyrsmithlabs/dedupd/pkg/dedupe"
)

var (
	manifestPath      string
	thresholdOverride float64
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect duplicate groups in a descriptor manifest",
	Long: `Detect reads a JSON manifest of file descriptors, runs the duplicate
detection engine, and prints the resulting groups as JSON on stdout.

Manifest entries may carry precomputed fingerprints and embeddings, or a
"path" pointing at local bytes to fingerprint.

Examples:
  # Detect with defaults
  dedupd detect --manifest files.json

  # Stricter threshold
  dedupd detect --manifest files.json --threshold 0.95

  # With a config file
  dedupd detect --config ~/.config/dedupd/config.yaml --manifest files.json`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&manifestPath, "manifest", "", "path to descriptor manifest (required)")
	detectCmd.Flags().Float64Var(&thresholdOverride, "threshold", 0, "override similarity threshold")
	_ = detectCmd.MarkFlagRequired("manifest")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	engineCfg := cfg.EngineConfig()
	if thresholdOverride != 0 {
		engineCfg.SimilarityThreshold = thresholdOverride
	}

	engine, err := dedupe.NewEngine(engineCfg, logger.Underlying())
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	entries, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}
	files, err := manifest.Descriptors(entries)
	if err != nil {
		return err
	}

	ctx := logging.WithBatchID(cmd.Context(), uuid.New().String())
	logger.Info(ctx, "starting detection",
		zap.Int("files", len(files)),
		zap.Float64("threshold", engineCfg.SimilarityThreshold),
	)

	groups, err := engine.DetectDuplicates(ctx, files)
	if err != nil {
		return fmt.Errorf("detecting duplicates: %w", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(groups); err != nil {
		return fmt.Errorf("encoding groups: %w", err)
	}

	return nil
}
