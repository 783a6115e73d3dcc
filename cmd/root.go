package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelfplayer",
	Short: "Terminal audiobook player for Audiobookshelf servers",
	Long: `shelfplayer - A terminal audiobook player for Audiobookshelf servers.

Books are streamed track by track into a local cache and played through
PortAudio with gapless track transitions, chapter navigation and listening
progress synced back to the server.

Features:
  - Lock-free SPSC ringbuffer feeding the audio callback
  - MP3, FLAC, Ogg Vorbis and WAV playback at 16-bit PCM
  - Book-global seeking across track files
  - Adjustable playback speed (0.5x to 3.0x)
  - Auto-resume of the last listened book
  - Server progress sync on pause, stop and quit

Commands:
  - play: Connect to the server and open the player interface
  - scan: List cached audio files and their metadata`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (debug logging)")
}
