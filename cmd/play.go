package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"shelfplayer/internal/api"
	"shelfplayer/internal/app"
	"shelfplayer/internal/artwork"
	"shelfplayer/internal/config"
	"shelfplayer/internal/output"
	"shelfplayer/internal/player"
	"shelfplayer/internal/ui"
)

var deviceIdx int

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Connect to the server and open the player interface",
	Long: `Connect to the configured Audiobookshelf server and open the player.

The last listened book is preloaded paused at its saved position, rewound
ten seconds. Tracks are downloaded into the cache directory on demand and
the next track is prefetched shortly before the current one runs out.

Key bindings:
  space      play / pause
  h / l      seek backward / forward (controls pane)
  j / k      move cursor (libraries and chapters panes)
  enter      play selected chapter
  tab        cycle pane focus
  H / L      previous / next library
  + / -      playback speed
  q          sync progress and quit

The configuration file holds the server URL and API key. On first run a
template is written to the user config directory.

Examples:
  # Open the player
  shelfplayer play

  # Pick a specific output device
  shelfplayer play --device 2

  # Use an alternative config file
  shelfplayer play --config ~/work/audiobooks.yml`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&deviceIdx, "device", "d", -1, "Audio output device index (-1 for config value)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file in the cache dir
	if err := setupLogging(cfg.CacheDir); err != nil {
		return err
	}

	if err := output.Initialize(); err != nil {
		return err
	}
	defer output.Terminate()

	client, err := api.NewClient(cfg.ServerURL, cfg.APIKey, filepath.Join(cfg.CacheDir, "tracks"))
	if err != nil {
		return err
	}

	covers, err := artwork.NewDownloader(filepath.Join(cfg.CacheDir, "covers"))
	if err != nil {
		return err
	}

	worker := api.NewWorker(client, covers)
	worker.Start()
	defer worker.Close()

	device := cfg.DeviceIndex
	if deviceIdx >= 0 {
		device = deviceIdx
	}
	engine := player.New(output.Opener(device), slog.Default())
	engine.Start()
	defer engine.Close()

	a := app.New(engine, worker, time.Duration(cfg.SeekStepSeconds)*time.Second)
	a.LoadLibraries()

	return ui.Run(a, engine, worker, ui.ThemeByName(cfg.Theme))
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return config.Config{}, err
		}
	}

	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrNotConfigured) {
		return config.Config{}, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, err
}

func setupLogging(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cacheDir, "shelfplayer.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return nil
}
