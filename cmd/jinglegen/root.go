package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jinglegen/jinglegen/internal/config"
)

var configFile string

// flagKeys maps command-line flags onto configuration keys
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"profile":     "profile",
	"addr":        "server.addr",
	"upload-dir":  "server.upload_dir",
	"sample-rate": "audio.sample_rate",
	"no-ffmpeg":   "audio.ffmpeg_enabled",
	"raw-agent":   "response.raw_agent",
}

var rootCmd = &cobra.Command{
	Use:   "jinglegen",
	Short: "Audio analysis and mock OpenRTB bid request generator",
	Long: `jinglegen analyses a short audio clip, labels its energy, brightness,
instrumentation, tempo and rhythm, and builds a mock OpenRTB 2.x bid
request carrying those labels as custom audio signals.

Run "jinglegen serve" for the HTTP service or "jinglegen analyze FILE"
for a one-off analysis.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (YAML)")
	rootCmd.PersistentFlags().String("log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("profile", "local",
		"bid request profile (local, cloud)")
	rootCmd.PersistentFlags().Int("sample-rate", 22050,
		"analysis sample rate in Hz, 0 keeps the source rate")
	rootCmd.PersistentFlags().Bool("no-ffmpeg", false,
		"decode WAV, MP3 and OGG natively only")

	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

// loadConfig layers defaults, the config file, environment and any flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(cmd.Flags(), v); err != nil {
		return nil, err
	}
	return config.Load(v)
}

func bindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	var lastErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if f.Name == "no-ffmpeg" {
			v.Set(key, f.Value.String() != "true")
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})
	return lastErr
}
