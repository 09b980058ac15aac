package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/tonekeys/internal/logx"
	"github.com/cwbudde/tonekeys/preset"
	"github.com/cwbudde/tonekeys/tone"
)

var (
	logLevel   string
	configPath string

	logger   = logx.Discard()
	settings = preset.Default()
)

var rootCmd = &cobra.Command{
	Use:   "tonekeys",
	Short: "Two-octave synthesized keyboard",
	Long: `tonekeys plays a 25-key keyboard (C4..C6) from additive-synthesis
recipes: piano, organ, synth and music-box.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logx.New(os.Stderr, logLevel)
		if err != nil {
			return err
		}
		logger = l
		if configPath == "" {
			settings = preset.Default()
			return nil
		}
		s, err := preset.LoadJSON(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		settings = s
		logger.Debug("config loaded", "path", configPath, "sample_rate", s.Engine.SampleRate,
			"instrument", s.Engine.Instrument.String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "preset JSON file")
}

// applyOverrides copies explicitly set flags over the loaded settings.
func applyOverrides(cmd *cobra.Command, instrument string, sampleRate int, workers string) error {
	if cmd.Flags().Changed("instrument") {
		t, err := tone.ParseTimbre(instrument)
		if err != nil {
			return err
		}
		settings.Engine.Instrument = t
	}
	if cmd.Flags().Changed("sample-rate") {
		settings.Engine.SampleRate = sampleRate
	}
	if cmd.Flags().Changed("workers") {
		n, err := parseWorkers(workers)
		if err != nil {
			return fmt.Errorf("invalid --workers: %w", err)
		}
		settings.Engine.Workers = n
	}
	return settings.Engine.Validate()
}

// parseWorkers accepts a positive count or "auto" (0).
func parseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

// parseNotes splits a comma or space separated note list.
func parseNotes(s string) ([]tone.NoteID, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("no notes given")
	}
	out := make([]tone.NoteID, 0, len(fields))
	for _, f := range fields {
		n, err := tone.ParseNote(f)
		if err != nil {
			return nil, err
		}
		if !n.Supported() {
			return nil, fmt.Errorf("%w: %s outside C4..C6", tone.ErrInvalidNote, n)
		}
		out = append(out, n)
	}
	return out, nil
}

func engineLogger() *slog.Logger { return logger.With("component", "engine") }
