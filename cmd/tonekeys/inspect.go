package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/cwbudde/tonekeys/analysis"
	"github.com/cwbudde/tonekeys/engine"
	"github.com/cwbudde/tonekeys/internal/wavio"
	"github.com/cwbudde/tonekeys/tone"
)

var inspectFlags struct {
	note       string
	instrument string
	sampleRate int
	harmonics  int
	wav        string
	input      string
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectFlags.note, "note", "A4", "note to synthesize")
	f.StringVar(&inspectFlags.instrument, "instrument", "piano", "piano, organ, synth or music-box")
	f.IntVar(&inspectFlags.sampleRate, "sample-rate", engine.DefaultSampleRate, "sample rate in Hz")
	f.IntVar(&inspectFlags.harmonics, "harmonics", 8, "number of harmonics to report")
	f.StringVar(&inspectFlags.wav, "wav", "", "also write the buffer to this WAV path")
	f.StringVar(&inspectFlags.input, "input", "", "analyze this WAV file against --note instead of synthesizing")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Synthesize one note buffer and print its spectrum",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyOverrides(cmd, inspectFlags.instrument, inspectFlags.sampleRate, "auto"); err != nil {
			return err
		}
		n, err := tone.ParseNote(inspectFlags.note)
		if err != nil {
			return err
		}
		if inspectFlags.harmonics < 1 {
			return fmt.Errorf("--harmonics must be >= 1")
		}
		if inspectFlags.input != "" {
			return inspectFile(cmd.OutOrStdout(), inspectFlags.input, n, inspectFlags.harmonics)
		}
		b, err := tone.SynthesizeNote(n, settings.Engine.Instrument, settings.Engine.SampleRate)
		if err != nil {
			return err
		}
		if err := inspectBuffer(cmd.OutOrStdout(), b, inspectFlags.harmonics); err != nil {
			return err
		}
		if inspectFlags.wav != "" {
			if err := wavio.WriteStereo(inspectFlags.wav, b.Interleaved(), b.SampleRate()); err != nil {
				return fmt.Errorf("write %s: %w", inspectFlags.wav, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", inspectFlags.wav)
		}
		return nil
	},
}

func inspectBuffer(w io.Writer, b *tone.Buffer, harmonics int) error {
	note, _ := b.Note()
	fmt.Fprintf(w, "%s %s: %.2f Hz, %d frames (%.2fs) at %d Hz\n",
		note, b.Timbre(), b.Frequency(), b.Frames(), b.Duration(), b.SampleRate())
	gl, gr := tone.StereoGains(b.Frequency())
	fmt.Fprintf(w, "stereo gains L=%.3f R=%.3f\n", gl, gr)
	return inspectSignal(w, b.Mono(), b.SampleRate(), b.Frequency(), harmonics)
}

// inspectFile reports a WAV file, for example a render, against the
// harmonic series of note.
func inspectFile(w io.Writer, path string, note tone.NoteID, harmonics int) error {
	st, rate, err := wavio.ReadStereo(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	mono := make([]float32, len(st)/2)
	for i := range mono {
		mono[i] = 0.5 * (st[i*2] + st[i*2+1])
	}
	fmt.Fprintf(w, "%s: %d frames (%.2fs) at %d Hz, against %s\n",
		path, len(mono), float64(len(mono))/float64(rate), rate, note)
	return inspectSignal(w, mono, rate, note.Frequency(), harmonics)
}

func inspectSignal(w io.Writer, mono []float32, sampleRate int, f0 float64, harmonics int) error {
	fmt.Fprintf(w, "peak %.1f dBFS, rms %.1f dBFS", analysis.LinToDB(analysis.Peak(mono)), analysis.LinToDB(analysis.RMS(mono)))
	if d := analysis.DecayRate(mono, sampleRate); !math.IsNaN(d) {
		fmt.Fprintf(w, ", decay %.1f dB/s", d)
	}
	fmt.Fprintln(w)

	hs, err := analysis.HarmonicEnergy(mono, sampleRate, f0, harmonics)
	if err != nil {
		return err
	}
	ref := hs[0]
	for i, h := range hs {
		rel := math.Inf(-1)
		if ref > 0 {
			rel = analysis.LinToDB(h / ref)
		}
		fmt.Fprintf(w, "  h%-2d %8.2f Hz  %.5f  %7.1f dB\n", i+1, float64(i+1)*f0, h, rel)
	}
	return nil
}
