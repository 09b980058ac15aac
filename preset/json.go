package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/tonekeys/engine"
	"github.com/cwbudde/tonekeys/tone"
)

// File is the JSON schema for engine presets. Absent fields keep their
// defaults.
type File struct {
	SampleRate  *int     `json:"sample_rate"`
	Instrument  *string  `json:"instrument"`
	FadeMS      *float64 `json:"fade_ms"`
	StopDelayMS *float64 `json:"stop_delay_ms"`
	Workers     *int     `json:"workers"`
	MasterGain  *float32 `json:"master_gain"`
	BufferMS    *float64 `json:"buffer_ms"`
	HoldMS      *float64 `json:"hold_ms"`
}

// Settings is everything a preset controls.
type Settings struct {
	Engine engine.Config
	// BufferSize is the output device buffer; zero lets the backend decide.
	BufferSize time.Duration
	// Hold is how long a key press sounds before its automatic release in
	// the terminal player.
	Hold time.Duration
}

// MaxBufferSize is the largest device buffer that still renders a whole
// release fade before the voice's stop fires. The fade starts on the first
// render block after NoteOff, so a block must fit in StopDelay - FadeTime.
func (s *Settings) MaxBufferSize() time.Duration {
	return s.Engine.StopDelay - s.Engine.FadeTime
}

// OutputBuffer is the buffer to open the device with: BufferSize, or
// MaxBufferSize when unset.
func (s *Settings) OutputBuffer() time.Duration {
	if s.BufferSize > 0 {
		return s.BufferSize
	}
	return s.MaxBufferSize()
}

// DefaultHold is the terminal player's automatic release delay.
const DefaultHold = 400 * time.Millisecond

// Default returns the stock settings.
func Default() *Settings {
	return &Settings{Engine: engine.DefaultConfig(), Hold: DefaultHold}
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
func LoadJSON(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := Default()
	if err := ApplyFile(s, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// ApplyFile applies a parsed preset file onto existing settings and
// validates the resulting engine config.
func ApplyFile(dst *Settings, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination settings")
	}
	if f == nil {
		return nil
	}

	if f.SampleRate != nil {
		dst.Engine.SampleRate = *f.SampleRate
	}
	if f.Instrument != nil {
		t, err := tone.ParseTimbre(*f.Instrument)
		if err != nil {
			return fmt.Errorf("instrument: %w", err)
		}
		dst.Engine.Instrument = t
	}
	if f.FadeMS != nil {
		if *f.FadeMS <= 0 {
			return fmt.Errorf("fade_ms must be > 0")
		}
		dst.Engine.FadeTime = millis(*f.FadeMS)
	}
	if f.StopDelayMS != nil {
		if *f.StopDelayMS <= 0 {
			return fmt.Errorf("stop_delay_ms must be > 0")
		}
		dst.Engine.StopDelay = millis(*f.StopDelayMS)
	}
	if f.Workers != nil {
		dst.Engine.Workers = *f.Workers
	}
	if f.MasterGain != nil {
		dst.Engine.MasterGain = *f.MasterGain
	}
	if f.BufferMS != nil {
		if *f.BufferMS < 0 {
			return fmt.Errorf("buffer_ms must be >= 0")
		}
		dst.BufferSize = millis(*f.BufferMS)
	}
	if f.HoldMS != nil {
		if *f.HoldMS <= 0 {
			return fmt.Errorf("hold_ms must be > 0")
		}
		dst.Hold = millis(*f.HoldMS)
	}
	if err := dst.Engine.Validate(); err != nil {
		return err
	}
	if dst.BufferSize > dst.MaxBufferSize() {
		return fmt.Errorf("buffer_ms %v exceeds stop_delay_ms - fade_ms (%v)", dst.BufferSize, dst.MaxBufferSize())
	}
	return nil
}
