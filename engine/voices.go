package engine

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/tonekeys/dsp"
	"github.com/cwbudde/tonekeys/tone"
)

// Voices tracks at most one voice per note and drives the
// Idle -> Sounding -> Releasing -> Idle cycle.
type Voices struct {
	mu         sync.Mutex
	mixer      *Mixer
	clock      Clock
	log        *slog.Logger
	sampleRate int
	fadeTime   time.Duration
	stopDelay  time.Duration

	byNote map[tone.NoteID]*Voice
	closed bool
}

// VoicesConfig parameterizes NewVoices. Zero durations take the defaults.
type VoicesConfig struct {
	SampleRate int
	FadeTime   time.Duration
	StopDelay  time.Duration
	Clock      Clock
	Logger     *slog.Logger
}

// NewVoices creates a manager publishing to mixer.
func NewVoices(mixer *Mixer, cfg VoicesConfig) *Voices {
	if cfg.FadeTime <= 0 {
		cfg.FadeTime = DefaultFadeTime
	}
	if cfg.StopDelay <= 0 {
		cfg.StopDelay = DefaultStopDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Voices{
		mixer:      mixer,
		clock:      cfg.Clock,
		log:        cfg.Logger,
		sampleRate: cfg.SampleRate,
		fadeTime:   cfg.FadeTime,
		stopDelay:  cfg.StopDelay,
		byNote:     make(map[tone.NoteID]*Voice),
	}
}

// NoteOn starts buf for note, cutting any voice already held by that note.
// It returns nil once the manager is closed.
func (m *Voices) NoteOn(note tone.NoteID, buf *tone.Buffer) *Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || buf == nil {
		return nil
	}
	if old := m.byNote[note]; old != nil {
		m.retireLocked(old)
	}
	v := newVoice(note, buf, dsp.DurationToSamples(m.fadeTime.Seconds(), m.sampleRate))
	v.state = Sounding
	m.byNote[note] = v
	m.publishLocked()
	return v
}

// NoteOff fades a sounding note and schedules its stop. It reports whether
// a release was started; releasing or idle notes are left alone.
func (m *Voices) NoteOff(note tone.NoteID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.byNote[note]
	if m.closed || v == nil || v.state != Sounding {
		return false
	}
	v.state = Releasing
	v.requestRelease()
	v.timer = m.clock.AfterFunc(m.stopDelay, func() { m.expire(v) })
	return true
}

func (m *Voices) expire(v *Voice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || v.state != Releasing || m.byNote[v.note] != v {
		return
	}
	v.timer = nil
	m.stopLocked(v)
	delete(m.byNote, v.note)
	m.publishLocked()
}

// StopAll hard-stops every voice without fading and cancels pending stops.
func (m *Voices) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
}

func (m *Voices) stopAllLocked() {
	if len(m.byNote) == 0 {
		return
	}
	for _, v := range m.byNote {
		m.retireLocked(v)
	}
	m.publishLocked()
}

// Close stops everything; later calls and stray timer callbacks are no-ops.
func (m *Voices) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAllLocked()
	m.closed = true
}

func (m *Voices) retireLocked(v *Voice) {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	m.stopLocked(v)
	delete(m.byNote, v.note)
}

func (m *Voices) stopLocked(v *Voice) {
	v.state = Idle
	if err := v.Stop(); err != nil {
		// ErrAlreadyStopped is the only failure: the voice already ended.
		m.log.Debug("voice already stopped", "note", v.note.String())
	}
}

func (m *Voices) publishLocked() {
	list := make([]*Voice, 0, len(m.byNote))
	for _, v := range m.byNote {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].note.Semitone() < list[j].note.Semitone()
	})
	m.mixer.setVoices(list)
}

// ActiveNotes returns the sounding notes, low to high. Notes leave the set
// the moment NoteOff is called, even while their fade is still audible.
func (m *Voices) ActiveNotes() []tone.NoteID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tone.NoteID, 0, len(m.byNote))
	for n, v := range m.byNote {
		if v.state == Sounding {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Semitone() < out[j].Semitone() })
	return out
}

// State returns the playback state of note.
func (m *Voices) State(note tone.NoteID) VoiceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := m.byNote[note]; v != nil {
		return v.state
	}
	return Idle
}

// Voice returns the live voice for note, or nil.
func (m *Voices) Voice(note tone.NoteID) *Voice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byNote[note]
}

// Len is the number of live (sounding or releasing) voices.
func (m *Voices) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byNote)
}
