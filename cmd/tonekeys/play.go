package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cwbudde/tonekeys/engine"
	"github.com/cwbudde/tonekeys/output"
	"github.com/cwbudde/tonekeys/tone"
)

var playFlags struct {
	instrument string
	sampleRate int
	workers    string
	hold       float64
}

func init() {
	f := playCmd.Flags()
	f.StringVar(&playFlags.instrument, "instrument", "piano", "piano, organ, synth or music-box")
	f.IntVar(&playFlags.sampleRate, "sample-rate", engine.DefaultSampleRate, "output sample rate in Hz")
	f.StringVar(&playFlags.workers, "workers", "auto", "warm workers: integer >= 1 or 'auto'")
	f.Float64Var(&playFlags.hold, "hold", 0, "seconds a key sounds before release (0 uses the config value)")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the keyboard from the terminal",
	Long: `Play the keyboard in a terminal.

  a w s e d f t g y h u j    C4 .. B4
  k o l p ; ' ] \ z x c v    C5 .. B5
  b                          C6
  1 2 3 4                    piano, organ, synth, music-box
  space                      stop all
  q, Ctrl-C                  quit

Terminals report key presses only; each note is released after --hold.
Audio starts on the first key press.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyOverrides(cmd, playFlags.instrument, playFlags.sampleRate, playFlags.workers); err != nil {
			return err
		}
		hold := settings.Hold
		if playFlags.hold > 0 {
			hold = seconds(playFlags.hold)
		}
		e, err := engine.New(settings.Engine, output.NewOto(settings.OutputBuffer()), engine.WithLogger(engineLogger()))
		if err != nil {
			return err
		}
		defer e.Close()

		fd := int(os.Stdin.Fd())
		if term.IsTerminal(fd) {
			old, err := term.MakeRaw(fd)
			if err != nil {
				return fmt.Errorf("raw terminal: %w", err)
			}
			defer term.Restore(fd, old)
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runPlayer(ctx, e, os.Stdin, cmd.OutOrStdout(), hold)
	},
}

type playMsg struct {
	key     byte
	release tone.NoteID
	press   int
	isKey   bool
	err     error
}

// heldKey is a sounding key waiting for its automatic release.
type heldKey struct {
	timer *time.Timer
	press int
}

// runPlayer owns the engine: every engine call happens on this goroutine.
func runPlayer(ctx context.Context, e *engine.Engine, in io.Reader, out io.Writer, hold time.Duration) error {
	msgs := make(chan playMsg, 32)
	go func() {
		r := bufio.NewReader(in)
		for {
			b, err := r.ReadByte()
			if err != nil {
				msgs <- playMsg{err: err}
				return
			}
			msgs <- playMsg{key: b, isKey: true}
		}
	}()

	events := e.Subscribe()
	held := make(map[tone.NoteID]*heldKey)
	releaseAll := func() {
		for n, h := range held {
			h.timer.Stop()
			delete(held, n)
		}
	}
	defer releaseAll()
	presses := 0
	deviceErr := false

	fmt.Fprintf(out, "tonekeys: %s. Press a key to start audio, q to quit.\r\n", e.Instrument())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			printEvent(out, e, ev)

		case m := <-msgs:
			if m.err != nil {
				if errors.Is(m.err, io.EOF) {
					return nil
				}
				return m.err
			}
			if !m.isKey {
				if h := held[m.release]; h != nil && h.press == m.press {
					delete(held, m.release)
					e.NoteOff(m.release)
				}
				continue
			}
			switch b := m.key; {
			case b == 'q' || b == 'Q' || b == 3:
				fmt.Fprint(out, "\r\n")
				return nil
			case b == ' ':
				releaseAll()
				e.StopAll()
				continue
			}

			if e.State() == engine.Uninitialized {
				if err := e.Initialize(ctx); err != nil {
					if errors.Is(err, engine.ErrDeviceUnavailable) {
						fmt.Fprintf(out, "audio unavailable: %v\r\n", err)
						continue
					}
					return err
				}
			}
			if t, ok := timbreForKey(m.key); ok {
				releaseAll()
				e.SetInstrument(t)
				continue
			}
			n, ok := noteForKey(m.key)
			if !ok {
				continue
			}
			// Key auto-repeat extends a held note instead of retriggering it.
			if h := held[n]; h != nil {
				h.timer.Reset(hold)
				continue
			}
			e.NoteOn(n)
			if err := e.Err(); err != nil && !deviceErr {
				deviceErr = true
				fmt.Fprintf(out, "\r\naudio output failed: %v\r\n", err)
			}
			presses++
			msg := playMsg{release: n, press: presses}
			held[n] = &heldKey{
				press: presses,
				timer: time.AfterFunc(hold, func() { msgs <- msg }),
			}
		}
	}
}

func printEvent(out io.Writer, e *engine.Engine, ev engine.Event) {
	switch ev.Kind {
	case engine.EventWarmProgress:
		p := ev.Progress
		if p.Percent == 100 {
			fmt.Fprintf(out, "\r%s ready (%d notes, %d failed)\x1b[K\r\n", p.Timbre, p.Total, p.Failed)
		} else {
			fmt.Fprintf(out, "\rwarming %s %3d%%\x1b[K", p.Timbre, p.Percent)
		}
	case engine.EventActiveNotes:
		fmt.Fprintf(out, "\r%s [%s]\x1b[K", e.Instrument(), formatActive(ev.Active))
	}
}

func formatActive(notes []tone.NoteID) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("%s(%c)", n, keyFor(n))
	}
	return strings.Join(parts, " ")
}
