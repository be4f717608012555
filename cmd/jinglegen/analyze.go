package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jinglegen/jinglegen/analysis"
	"github.com/jinglegen/jinglegen/logging"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

var (
	transcript string
	bidOnly    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyse one audio file and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// stdout carries the JSON result
		logger := logging.NewWriterLogger(os.Stderr, os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
		logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
		logging.SetGlobalLogger(logger)

		profile, _ := ortb.ProfileByName(cfg.Profile)
		decoderCfg := cfg.Audio
		analyzer := pipeline.NewAnalyzer(
			transcode.NewDecoder(&decoderCfg),
			analysis.NewExtractor(analysis.DefaultExtractorConfig(), analysis.LogObserver{}),
			ortb.NewAssembler(profile),
		)

		combined, err := analyzer.Run(cmd.Context(), pipeline.Input{
			Path:       args[0],
			Filename:   filepath.Base(args[0]),
			Transcript: transcript,
			Device:     &ortb.DeviceContext{UserAgent: "jinglegen-cli"},
		})
		if err != nil {
			logging.Error(err, "Analysis failed", logging.Fields{"file": args[0]})
			return err
		}

		var out any = combined
		if bidOnly {
			out = combined.OrtbRequest
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&transcript, "transcript", "", "transcript snippet to attach to the bid request")
	analyzeCmd.Flags().BoolVar(&bidOnly, "bid-only", false, "print only the bid request")
}
