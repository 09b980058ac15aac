package output

import (
	"context"
	"fmt"
	"sync"
)

// sharedBackend holds a process-wide backend context that may be created
// only once. The ready channel is kept with it, so every caller waits for
// readiness, including callers that reuse a context whose first Open was
// canceled before it became ready.
type sharedBackend[T any] struct {
	mu    sync.Mutex
	val   T
	made  bool
	rate  int
	ready <-chan struct{}
}

func (s *sharedBackend[T]) get(ctx context.Context, sampleRate int, create func() (T, <-chan struct{}, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.made {
		if s.rate != sampleRate {
			return zero, fmt.Errorf("audio context already open at %d Hz", s.rate)
		}
	} else {
		v, ready, err := create()
		if err != nil {
			return zero, err
		}
		s.val, s.ready, s.rate, s.made = v, ready, sampleRate, true
	}
	select {
	case <-s.ready:
		return s.val, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
