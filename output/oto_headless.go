//go:build headless

package output

import (
	"context"
	"errors"
	"time"

	"github.com/cwbudde/tonekeys/engine"
)

var errNoAudio = errors.New("built with -tags headless: no audio backend")

// Oto is unavailable in headless builds; Open always fails.
type Oto struct {
	BufferSize time.Duration
}

func NewOto(bufferSize time.Duration) *Oto {
	return &Oto{BufferSize: bufferSize}
}

func (o *Oto) Open(context.Context, int, engine.Source) error { return errNoAudio }

func (o *Oto) Close() error { return nil }
