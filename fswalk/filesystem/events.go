package filesystem

import (
	"context"
	"errors"
	"io"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/common"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"
)

// Events runs the traversal in its own goroutine and delivers it as a
// channel of data, warn, error and end events. The channel is unbuffered,
// so the traversal only advances as fast as the receiver consumes it.
// Exactly one end or error event is sent before the channel is closed,
// unless the stream is closed or ctx is cancelled first, in which case the
// channel is closed without further events.
//
// Events must be called at most once and not combined with Read.
func (s *Stream) Events(ctx context.Context) <-chan types.Event {
	ch := make(chan types.Event)

	s.mu.Lock()
	s.pumping = true
	s.mu.Unlock()

	go s.pump(ctx, ch)
	return ch
}

func (s *Stream) pump(ctx context.Context, ch chan<- types.Event) {
	defer close(ch)

	send := func(ev types.Event) bool {
		if s.closed.Load() || ctx.Err() != nil {
			return false
		}
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		case <-s.ctx.Done():
			return false
		}
	}

	sendWarnings := func() bool {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		for _, w := range s.drainWarnings() {
			if s.cfg.OnWarning != nil {
				s.cfg.OnWarning(w)
			}
			if !send(types.Event{Type: types.EventWarn, Err: w}) {
				return false
			}
		}
		return true
	}

	for {
		if err := s.waitResumed(ctx); err != nil {
			return
		}

		entries, err := s.Read(ctx, s.cfg.HighWaterMark)
		if !sendWarnings() {
			return
		}

		switch {
		case errors.Is(err, common.ErrPaused):
			continue
		case errors.Is(err, io.EOF):
			if !s.closed.Load() && ctx.Err() == nil {
				send(types.Event{Type: types.EventEnd})
			}
			return
		case err != nil:
			if ctx.Err() == nil {
				send(types.Event{Type: types.EventError, Err: err})
			}
			return
		}

		for _, entry := range entries {
			if err := s.waitResumed(ctx); err != nil {
				return
			}
			if !send(types.Event{Type: types.EventData, Entry: entry}) {
				return
			}
		}
	}
}
