//go:build !headless

package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/tonekeys/engine"
)

// oto allows one context per process; it is created on first Open and
// reused afterwards.
var otoShared sharedBackend[*oto.Context]

func sharedContext(ctx context.Context, sampleRate int, bufferSize time.Duration) (*oto.Context, error) {
	return otoShared.get(ctx, sampleRate, func() (*oto.Context, <-chan struct{}, error) {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
			BufferSize:   bufferSize,
		})
		return c, ready, err
	})
}

// Oto plays through the system audio device.
type Oto struct {
	// BufferSize is the device buffer length; zero lets oto choose.
	BufferSize time.Duration

	mu     sync.Mutex
	ctx    *oto.Context
	player *oto.Player
}

// NewOto returns an Oto device with the given buffer length.
func NewOto(bufferSize time.Duration) *Oto {
	return &Oto{BufferSize: bufferSize}
}

func (o *Oto) Open(ctx context.Context, sampleRate int, src engine.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		return fmt.Errorf("oto device already open")
	}
	c, err := sharedContext(ctx, sampleRate, o.BufferSize)
	if err != nil {
		return err
	}
	if err := c.Resume(); err != nil {
		return err
	}
	o.ctx = c
	o.player = c.NewPlayer(src)
	o.player.Play()
	return nil
}

// Err returns the player's asynchronous error, if any.
func (o *Oto) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	return o.player.Err()
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	if serr := o.ctx.Suspend(); err == nil {
		err = serr
	}
	return err
}
