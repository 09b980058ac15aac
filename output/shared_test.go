package output

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSharedBackendReuseWaitsForReady(t *testing.T) {
	var s sharedBackend[int]
	ready := make(chan struct{})
	creates := 0
	create := func() (int, <-chan struct{}, error) {
		creates++
		return 7, ready, nil
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.get(canceled, 48000, create); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled get: got=%v", err)
	}

	got := make(chan int, 1)
	go func() {
		v, err := s.get(context.Background(), 48000, create)
		if err != nil {
			t.Errorf("get: %v", err)
		}
		got <- v
	}()
	select {
	case v := <-got:
		t.Fatalf("reuse returned %d before the context was ready", v)
	case <-time.After(50 * time.Millisecond):
	}

	close(ready)
	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("value: got=%d want=7", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("get did not return after ready closed")
	}
	if creates != 1 {
		t.Fatalf("creates: got=%d want=1", creates)
	}
}

func TestSharedBackendRejectsOtherRate(t *testing.T) {
	var s sharedBackend[int]
	ready := make(chan struct{})
	close(ready)
	create := func() (int, <-chan struct{}, error) { return 1, ready, nil }
	if _, err := s.get(context.Background(), 48000, create); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, err := s.get(context.Background(), 44100, create); err == nil {
		t.Fatalf("expected error for a second rate")
	}
}

func TestSharedBackendCreateFailureAllowsRetry(t *testing.T) {
	var s sharedBackend[int]
	boom := errors.New("no backend")
	if _, err := s.get(context.Background(), 48000, func() (int, <-chan struct{}, error) {
		return 0, nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("got=%v want %v", err, boom)
	}
	ready := make(chan struct{})
	close(ready)
	if v, err := s.get(context.Background(), 48000, func() (int, <-chan struct{}, error) {
		return 3, ready, nil
	}); err != nil || v != 3 {
		t.Fatalf("retry: v=%d err=%v", v, err)
	}
}
