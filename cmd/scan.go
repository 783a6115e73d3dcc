package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shelfplayer/internal/library"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "List cached audio files and their metadata",
	Long: `Scan a directory for audio files and print their metadata tags.

Without an argument the track cache directory from the config file is
scanned, which shows what has been downloaded so far.

Examples:
  # List the download cache
  shelfplayer scan

  # Inspect an arbitrary directory
  shelfplayer scan ~/audiobooks`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	var root string
	if len(args) == 1 {
		root = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		root = filepath.Join(cfg.CacheDir, "tracks")
	}

	entries, err := library.Scan(root)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("no audio files found in", root)
		return nil
	}

	for _, e := range entries {
		line := e.Title
		if e.Artist != "" {
			line += " - " + e.Artist
		}
		if e.Album != "" {
			line += " (" + e.Album + ")"
		}
		fmt.Printf("%s\n    %s\n", line, e.Path)
	}
	fmt.Printf("\n%d files\n", len(entries))
	return nil
}
