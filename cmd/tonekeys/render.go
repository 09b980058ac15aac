package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/tonekeys/analysis"
	"github.com/cwbudde/tonekeys/engine"
	"github.com/cwbudde/tonekeys/internal/wavio"
	"github.com/cwbudde/tonekeys/output"
	"github.com/cwbudde/tonekeys/tone"
)

type renderOptions struct {
	notes []tone.NoteID
	chord bool
	hold  time.Duration
	gap   time.Duration
	tail  time.Duration
}

var renderFlags struct {
	notes      string
	chord      bool
	hold       float64
	gap        float64
	tail       float64
	instrument string
	sampleRate int
	outRate    int
	workers    string
	output     string
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.notes, "notes", "C4,E4,G4,C5", "comma separated notes to play")
	f.BoolVar(&renderFlags.chord, "chord", false, "strike all notes together instead of in sequence")
	f.Float64Var(&renderFlags.hold, "hold", 0.4, "seconds each note is held before NoteOff")
	f.Float64Var(&renderFlags.gap, "gap", 0.1, "seconds between a NoteOff and the next NoteOn")
	f.Float64Var(&renderFlags.tail, "tail", 0.25, "seconds rendered after the last NoteOff")
	f.StringVar(&renderFlags.instrument, "instrument", "piano", "piano, organ, synth or music-box")
	f.IntVar(&renderFlags.sampleRate, "sample-rate", engine.DefaultSampleRate, "engine sample rate in Hz")
	f.IntVar(&renderFlags.outRate, "out-rate", 0, "resample the WAV to this rate (0 keeps the engine rate)")
	f.StringVar(&renderFlags.workers, "workers", "auto", "warm workers: integer >= 1 or 'auto'")
	f.StringVar(&renderFlags.output, "output", "output.wav", "output WAV path")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a note sequence offline to WAV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyOverrides(cmd, renderFlags.instrument, renderFlags.sampleRate, renderFlags.workers); err != nil {
			return err
		}
		notes, err := parseNotes(renderFlags.notes)
		if err != nil {
			return err
		}
		opts := renderOptions{
			notes: notes,
			chord: renderFlags.chord,
			hold:  seconds(renderFlags.hold),
			gap:   seconds(renderFlags.gap),
			tail:  seconds(renderFlags.tail),
		}
		if opts.hold <= 0 || opts.gap < 0 || opts.tail < 0 {
			return fmt.Errorf("--hold must be > 0, --gap and --tail >= 0")
		}

		start := time.Now()
		samples, err := renderNotes(cmd.Context(), settings.Engine, opts, engineLogger())
		if err != nil {
			return err
		}
		rate := settings.Engine.SampleRate
		if renderFlags.outRate > 0 && renderFlags.outRate != rate {
			samples, err = wavio.ResampleStereo(samples, rate, renderFlags.outRate)
			if err != nil {
				return err
			}
			rate = renderFlags.outRate
		}
		if err := wavio.WriteStereo(renderFlags.output, samples, rate); err != nil {
			return fmt.Errorf("write %s: %w", renderFlags.output, err)
		}

		frames := len(samples) / 2
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d frames (%.3fs) at %d Hz, %s, peak %.1f dBFS, rms %.1f dBFS, %v\n",
			renderFlags.output, frames, float64(frames)/float64(rate), rate,
			settings.Engine.Instrument, analysis.LinToDB(analysis.Peak(samples)),
			analysis.LinToDB(analysis.RMS(samples)), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

type scheduled struct {
	frame int
	on    bool
	note  tone.NoteID
}

func schedule(opts renderOptions, sampleRate int) ([]scheduled, int) {
	toFrames := func(d time.Duration) int {
		return int(math.Round(d.Seconds() * float64(sampleRate)))
	}
	var evs []scheduled
	at := 0
	for _, n := range opts.notes {
		evs = append(evs, scheduled{frame: at, on: true, note: n}, scheduled{frame: at + toFrames(opts.hold), note: n})
		if !opts.chord {
			at += toFrames(opts.hold + opts.gap)
		}
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].frame < evs[j].frame })
	last := evs[len(evs)-1].frame
	return evs, last + toFrames(opts.tail)
}

// renderNotes drives an engine on a headless device. The manual clock is
// advanced in step with rendered frames so release timers fire at the same
// sample positions on every run.
func renderNotes(ctx context.Context, cfg engine.Config, opts renderOptions, log *slog.Logger) ([]float32, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	const block = 128
	dev := output.NewHeadless()
	clk := engine.NewManualClock()
	e, err := engine.New(cfg, dev, engine.WithClock(clk), engine.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer e.Close()
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	if err := e.WaitWarm(ctx); err != nil {
		return nil, err
	}

	sr := cfg.SampleRate
	evs, total := schedule(opts, sr)
	out := make([]float32, 0, 2*total)
	buf := make([]float32, 2*block)
	next := 0
	for frame := 0; frame < total; {
		for next < len(evs) && evs[next].frame <= frame {
			if evs[next].on {
				e.NoteOn(evs[next].note)
			} else {
				e.NoteOff(evs[next].note)
			}
			next++
		}
		// Blocks end early at the next event so note events land on
		// their exact frame.
		n := block
		if frame+n > total {
			n = total - frame
		}
		if next < len(evs) && evs[next].frame < frame+n {
			n = evs[next].frame - frame
		}
		if err := dev.PullInto(buf[:2*n]); err != nil {
			return nil, err
		}
		out = append(out, buf[:2*n]...)
		frame += n
		elapsed := time.Duration(int64(frame) * int64(time.Second) / int64(sr))
		clk.Advance(elapsed - clk.Now())
	}
	return out, nil
}
