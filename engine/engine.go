package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cwbudde/tonekeys/tone"
)

// Default release timings.
const (
	DefaultFadeTime   = 30 * time.Millisecond
	DefaultStopDelay  = 50 * time.Millisecond
	DefaultSampleRate = 48000
)

// Device is the audio output abstraction. Open starts pulling from src at
// sampleRate; Close stops output.
type Device interface {
	Open(ctx context.Context, sampleRate int, src Source) error
	Close() error
}

// ErrorReporter is implemented by devices that can fail after Open, for
// example when the output is disconnected.
type ErrorReporter interface {
	Err() error
}

// Config holds engine settings.
type Config struct {
	SampleRate int
	Instrument tone.Timbre
	FadeTime   time.Duration
	StopDelay  time.Duration
	Workers    int
	MasterGain float32
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		Instrument: tone.Piano,
		FadeTime:   DefaultFadeTime,
		StopDelay:  DefaultStopDelay,
		MasterGain: 0.5,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 384000 {
		return fmt.Errorf("%w: sample rate %d out of range", ErrInvalidConfig, c.SampleRate)
	}
	if !c.Instrument.Valid() {
		return fmt.Errorf("%w: instrument %v", ErrInvalidConfig, c.Instrument)
	}
	if c.FadeTime <= 0 {
		return fmt.Errorf("%w: fade time must be > 0", ErrInvalidConfig)
	}
	if c.StopDelay < c.FadeTime {
		return fmt.Errorf("%w: stop delay %v shorter than fade %v", ErrInvalidConfig, c.StopDelay, c.FadeTime)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if !(c.MasterGain > 0) || c.MasterGain > 4 {
		return fmt.Errorf("%w: master gain %v not in (0,4]", ErrInvalidConfig, c.MasterGain)
	}
	return nil
}

// LifecycleState of an Engine.
type LifecycleState int

const (
	Uninitialized LifecycleState = iota
	Ready
	Closed
)

func (s LifecycleState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventKind tags an Event.
type EventKind int

const (
	EventWarmProgress EventKind = iota
	EventActiveNotes
)

// Event is delivered to subscribers.
type Event struct {
	Kind     EventKind
	Progress Progress
	Active   []tone.NoteID
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock sets the clock driving release timers.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithSynthFunc replaces note synthesis, mainly for tests.
func WithSynthFunc(f SynthFunc) Option {
	return func(e *Engine) { e.synth = f }
}

// Engine wires the cache, voice manager and mixer to a Device. Its methods
// are meant to be called from one event goroutine but are safe for
// concurrent use.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	dev    Device
	clock  Clock
	log    *slog.Logger
	synth  SynthFunc
	state  LifecycleState
	timbre tone.Timbre

	root     context.Context
	stop     context.CancelFunc
	mixer    *Mixer
	cache    *Cache
	voices   *Voices
	warmDone chan struct{}

	subMu sync.Mutex
	subs  []chan Event
	shut  bool
}

// New creates an engine in the Uninitialized state. Nothing touches the
// device until Initialize.
func New(cfg Config, dev Device, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", ErrInvalidConfig)
	}
	e := &Engine{
		cfg:    cfg,
		dev:    dev,
		clock:  RealClock{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		timbre: cfg.Instrument,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Initialize opens the device and starts warming the selected instrument.
// It is meant to run on the first user interaction. On device failure the
// engine stays Uninitialized and Initialize may be retried.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Ready:
		return nil
	case Closed:
		return ErrClosed
	}

	mixer := NewMixer(e.cfg.MasterGain)
	if err := e.dev.Open(ctx, e.cfg.SampleRate, mixer); err != nil {
		e.log.Error("audio device open failed", "sample_rate", e.cfg.SampleRate, "err", err)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	e.root, e.stop = context.WithCancel(context.Background())
	e.mixer = mixer
	cacheOpts := []CacheOption{WithWorkers(e.cfg.Workers), WithCacheLogger(e.log)}
	if e.synth != nil {
		cacheOpts = append(cacheOpts, WithSynth(e.synth))
	}
	e.cache = NewCache(e.cfg.SampleRate, e.timbre, cacheOpts...)
	e.voices = NewVoices(mixer, VoicesConfig{
		SampleRate: e.cfg.SampleRate,
		FadeTime:   e.cfg.FadeTime,
		StopDelay:  e.cfg.StopDelay,
		Clock:      e.clock,
		Logger:     e.log,
	})
	e.state = Ready
	e.log.Info("engine ready", "sample_rate", e.cfg.SampleRate, "instrument", e.timbre.String())
	e.startWarmLocked()
	return nil
}

func (e *Engine) startWarmLocked() {
	ch := e.cache.Warm(e.root, e.timbre)
	done := make(chan struct{})
	e.warmDone = done
	go func() {
		defer close(done)
		for p := range ch {
			e.emit(Event{Kind: EventWarmProgress, Progress: p})
		}
	}()
}

// SetInstrument selects a timbre. When Ready, every voice is hard-stopped
// and the cache is re-warmed, superseding any warm in progress.
func (e *Engine) SetInstrument(t tone.Timbre) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Closed {
		return
	}
	prev := e.timbre
	e.timbre = t
	if e.state != Ready {
		return
	}
	e.log.Info("instrument change", "from", prev.String(), "to", t.String())
	e.voices.StopAll()
	e.startWarmLocked()
	e.emitActiveLocked()
}

// Instrument is the selected timbre.
func (e *Engine) Instrument() tone.Timbre {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timbre
}

// State is the lifecycle state.
func (e *Engine) State() LifecycleState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SampleRate of the output stream.
func (e *Engine) SampleRate() int { return e.cfg.SampleRate }

// NoteOn starts note. Before Initialize (or after Close) it does nothing.
// While warming, missing buffers are synthesized on demand. A note outside
// the keyboard is a caller bug and panics.
func (e *Engine) NoteOn(note tone.NoteID) {
	if !note.Supported() {
		panic(fmt.Sprintf("engine: NoteOn for unsupported note %s", note))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready {
		return
	}
	buf, err := e.cache.Load(note)
	if err != nil {
		e.log.Warn("note buffer unavailable", "note", note.String(), "err", err)
		return
	}
	e.voices.NoteOn(note, buf)
	e.log.Debug("note on", "note", note.String())
	e.emitActiveLocked()
}

// NoteOff releases note with a short fade.
func (e *Engine) NoteOff(note tone.NoteID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready {
		return
	}
	if e.voices.NoteOff(note) {
		e.log.Debug("note off", "note", note.String())
		e.emitActiveLocked()
	}
}

// StopAll hard-stops every voice. It does not affect a warm in progress.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready {
		return
	}
	e.voices.StopAll()
	e.emitActiveLocked()
}

// ActiveNotes is the set of sounding notes, low to high.
func (e *Engine) ActiveNotes() []tone.NoteID {
	e.mu.Lock()
	v := e.voices
	e.mu.Unlock()
	if v == nil {
		return nil
	}
	return v.ActiveNotes()
}

// WarmProgress is the current warm percentage, 0..100.
func (e *Engine) WarmProgress() int {
	if c := e.currentCache(); c != nil {
		return c.State().Percent()
	}
	return 0
}

// IsWarming reports whether a warm run is in progress.
func (e *Engine) IsWarming() bool {
	if c := e.currentCache(); c != nil {
		return c.State().Warming
	}
	return false
}

func (e *Engine) currentCache() *Cache {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache
}

// WaitWarm blocks until the latest warm run finishes or ctx ends.
func (e *Engine) WaitWarm(ctx context.Context) error {
	e.mu.Lock()
	done := e.warmDone
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports an output failure raised after Initialize, wrapped in
// ErrDeviceUnavailable. Stopping a voice that already finished is never an
// error.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready {
		return nil
	}
	r, ok := e.dev.(ErrorReporter)
	if !ok {
		return nil
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	return nil
}

// Cache exposes the buffer cache (nil before Initialize).
func (e *Engine) Cache() *Cache { return e.currentCache() }

// Voices exposes the voice manager (nil before Initialize).
func (e *Engine) Voices() *Voices {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voices
}

// Mixer exposes the render source (nil before Initialize).
func (e *Engine) Mixer() *Mixer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mixer
}

// Subscribe returns a channel of progress and active-note events. Events
// are dropped for a subscriber whose buffer is full. The channel closes on
// Close.
func (e *Engine) Subscribe() <-chan Event {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	ch := make(chan Event, 64)
	if e.shut {
		close(ch)
		return ch
	}
	e.subs = append(e.subs, ch)
	return ch
}

func (e *Engine) emitActiveLocked() {
	e.emit(Event{Kind: EventActiveNotes, Active: e.voices.ActiveNotes()})
}

func (e *Engine) emit(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.shut {
		return
	}
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close stops all voices without fading, cancels warming and closes the
// device. Calling Close again is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.state == Closed {
		e.mu.Unlock()
		return nil
	}
	wasReady := e.state == Ready
	e.state = Closed
	var err error
	if wasReady {
		e.voices.Close()
		e.stop()
		if cerr := e.dev.Close(); cerr != nil {
			e.log.Error("audio device close failed", "err", cerr)
			err = cerr
		}
	}
	e.mu.Unlock()

	e.subMu.Lock()
	e.shut = true
	for _, ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.subMu.Unlock()

	if wasReady {
		e.log.Info("engine closed")
	}
	return err
}
