package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/tonekeys/tone"
)

// SynthFunc renders the buffer for one note. The cache calls it from
// several goroutines at once.
type SynthFunc func(note tone.NoteID, timbre tone.Timbre, sampleRate int) (*tone.Buffer, error)

// Progress is one step of a warm run.
type Progress struct {
	Timbre  tone.Timbre
	Done    int
	Failed  int
	Total   int
	Percent int
}

// WarmState summarizes the current warm run.
type WarmState struct {
	Timbre  tone.Timbre
	Total   int
	Done    int
	Failed  int
	Warming bool
}

// Percent is floor(Done*100/Total), 0 for an empty run.
func (s WarmState) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return s.Done * 100 / s.Total
}

// slotSet holds one write-once slot per keyboard note for one timbre.
type slotSet struct {
	timbre tone.Timbre
	gen    uint64
	slots  [tone.NumKeys]atomic.Pointer[tone.Buffer]
}

// Cache owns the note buffers of the selected timbre.
type Cache struct {
	sampleRate int
	workers    int
	synth      SynthFunc
	log        *slog.Logger

	set atomic.Pointer[slotSet]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  WarmState
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithWorkers bounds warm parallelism; n < 1 means GOMAXPROCS.
func WithWorkers(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSynth replaces the synthesis function.
func WithSynth(f SynthFunc) CacheOption {
	return func(c *Cache) {
		if f != nil {
			c.synth = f
		}
	}
}

// WithCacheLogger sets the logger used for warm reports.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCache creates an empty cache for timbre at sampleRate.
func NewCache(sampleRate int, timbre tone.Timbre, opts ...CacheOption) *Cache {
	c := &Cache{
		sampleRate: sampleRate,
		workers:    runtime.GOMAXPROCS(0),
		synth:      tone.SynthesizeNote,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.set.Store(&slotSet{timbre: timbre})
	c.state = WarmState{Timbre: timbre, Total: tone.NumKeys}
	return c
}

// SampleRate of the cached buffers.
func (c *Cache) SampleRate() int { return c.sampleRate }

// Timbre of the current slot set.
func (c *Cache) Timbre() tone.Timbre { return c.set.Load().timbre }

// State returns a snapshot of the current warm run.
func (c *Cache) State() WarmState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// swapLocked cancels any warm in flight and installs an empty set.
func (c *Cache) swapLocked(timbre tone.Timbre) *slotSet {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	s := &slotSet{timbre: timbre, gen: c.gen}
	c.set.Store(s)
	c.state = WarmState{Timbre: timbre, Total: tone.NumKeys}
	return s
}

// Invalidate drops every buffer and switches to timbre without warming.
func (c *Cache) Invalidate(timbre tone.Timbre) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.swapLocked(timbre)
}

// Warm replaces the cache with freshly synthesized buffers for timbre.
// Progress is reported once per processed note in monotonic order and the
// last value of a complete run has Percent == 100. A later Warm or
// Invalidate, or canceling ctx, supersedes the run: its channel then closes
// early. Notes whose synthesis fails stay absent and count as processed.
func (c *Cache) Warm(ctx context.Context, timbre tone.Timbre) <-chan Progress {
	c.mu.Lock()
	set := c.swapLocked(timbre)
	wctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Warming = true
	c.mu.Unlock()

	keys := tone.Keyboard()
	out := make(chan Progress, len(keys))
	results := make(chan error, len(keys))

	go func() {
		var g errgroup.Group
		g.SetLimit(c.workers)
		for _, n := range keys {
			if wctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if wctx.Err() != nil {
					return nil
				}
				results <- c.fill(set, n)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	go c.collect(wctx, set, results, out)
	return out
}

func (c *Cache) fill(set *slotSet, n tone.NoteID) error {
	buf, err := c.synth(n, set.timbre, c.sampleRate)
	if err != nil {
		c.log.Warn("note synthesis failed", "note", n.String(), "timbre", set.timbre.String(), "err", err)
		return err
	}
	if buf == nil {
		return fmt.Errorf("synthesize %s: nil buffer", n)
	}
	set.slots[n.Index()].CompareAndSwap(nil, buf)
	return nil
}

// collect is the single writer of progress for one run.
func (c *Cache) collect(ctx context.Context, set *slotSet, results <-chan error, out chan<- Progress) {
	defer close(out)
	start := time.Now()
	p := Progress{Timbre: set.timbre, Total: tone.NumKeys}
	for err := range results {
		if ctx.Err() != nil {
			continue
		}
		p.Done++
		if err != nil {
			p.Failed++
		}
		p.Percent = p.Done * 100 / p.Total

		c.mu.Lock()
		current := c.gen == set.gen
		if current {
			c.state.Done = p.Done
			c.state.Failed = p.Failed
		}
		c.mu.Unlock()
		if !current {
			continue
		}
		out <- p
	}

	c.mu.Lock()
	if c.gen == set.gen {
		c.state.Warming = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()

	if p.Done == p.Total {
		c.log.Info("warm complete", "timbre", set.timbre.String(), "notes", p.Total,
			"failed", p.Failed, "elapsed", time.Since(start))
	}
}

// Get returns the cached buffer for note in the current timbre.
func (c *Cache) Get(note tone.NoteID) (*tone.Buffer, bool) {
	if !note.Supported() {
		return nil, false
	}
	b := c.set.Load().slots[note.Index()].Load()
	return b, b != nil
}

// Load returns the cached buffer, synthesizing and storing it on a miss.
func (c *Cache) Load(note tone.NoteID) (*tone.Buffer, error) {
	if !note.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNote, note)
	}
	set := c.set.Load()
	slot := &set.slots[note.Index()]
	if b := slot.Load(); b != nil {
		return b, nil
	}
	b, err := c.synth(note, set.timbre, c.sampleRate)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("synthesize %s: nil buffer", note)
	}
	if !slot.CompareAndSwap(nil, b) {
		return slot.Load(), nil
	}
	return b, nil
}

// Len counts the present buffers.
func (c *Cache) Len() int {
	set := c.set.Load()
	n := 0
	for i := range set.slots {
		if set.slots[i].Load() != nil {
			n++
		}
	}
	return n
}
