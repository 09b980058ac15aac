package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/tonekeys/engine"
)

var warmFlags struct {
	instrument string
	sampleRate int
	workers    string
}

func init() {
	f := warmCmd.Flags()
	f.StringVar(&warmFlags.instrument, "instrument", "piano", "piano, organ, synth or music-box")
	f.IntVar(&warmFlags.sampleRate, "sample-rate", engine.DefaultSampleRate, "sample rate in Hz")
	f.StringVar(&warmFlags.workers, "workers", "auto", "warm workers: integer >= 1 or 'auto'")
	rootCmd.AddCommand(warmCmd)
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Warm a buffer cache and report progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyOverrides(cmd, warmFlags.instrument, warmFlags.sampleRate, warmFlags.workers); err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg := settings.Engine
		c := engine.NewCache(cfg.SampleRate, cfg.Instrument,
			engine.WithWorkers(cfg.Workers), engine.WithCacheLogger(engineLogger()))

		start := time.Now()
		out := cmd.OutOrStdout()
		for p := range c.Warm(ctx, cfg.Instrument) {
			fmt.Fprintf(out, "%3d%%  %2d/%d  failed=%d  %v\n", p.Percent, p.Done, p.Total, p.Failed,
				time.Since(start).Round(time.Millisecond))
		}
		st := c.State()
		fmt.Fprintf(out, "%s: %d/%d buffers at %d Hz in %v\n", st.Timbre, c.Len(), st.Total, c.SampleRate(),
			time.Since(start).Round(time.Millisecond))
		if st.Failed > 0 {
			return fmt.Errorf("%d notes failed to synthesize", st.Failed)
		}
		return ctx.Err()
	},
}
