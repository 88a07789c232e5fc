// Package main implements the dedupd CLI, a reference caller for the
// duplicate detection engine.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dedupd",
	Short: "Duplicate detection over file descriptor manifests",
	Long: `dedupd groups duplicate and near-duplicate files from a descriptor
manifest. It scores every comparable pair on content hashes, perceptual
hashes, and embedding vectors, clusters matches into groups, and picks one
canonical file to keep per group.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(detectCmd)
}
