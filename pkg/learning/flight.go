package learning

import (
	"context"
	"errors"

	"github.com/papercomputeco/eduverse/pkg/study"
)

// maxJoinAttempts bounds how often a caller whose context is still live
// retries after the generation it joined was cancelled by other callers.
const maxJoinAttempts = 3

// flight is one shared generation for a cache key. It runs detached from
// any single caller's context and is cancelled once every waiter is gone.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters map[*waiter]struct{}
}

type waiter struct {
	ctx  context.Context
	stop func() bool
}

// flightResult is what the shared call hands every waiter. leader identifies
// the waiter whose call ran the generator.
type flightResult struct {
	payload study.Payload
	leader  *waiter
}

// join registers ctx as a waiter on the flight for key, creating the flight
// if there is none.
func (s *Service) join(ctx context.Context, key string) (*flight, *waiter) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	if s.flights == nil {
		s.flights = make(map[string]*flight)
	}

	f, ok := s.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel, waiters: make(map[*waiter]struct{})}
		s.flights[key] = f
	}

	w := &waiter{ctx: ctx}
	f.waiters[w] = struct{}{}
	w.stop = context.AfterFunc(ctx, func() { s.leave(key, f, w) })
	return f, w
}

// leave removes w from f. The last waiter out cancels the flight.
func (s *Service) leave(key string, f *flight, w *waiter) {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	delete(f.waiters, w)
	if len(f.waiters) > 0 {
		return
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
	}
}

// alive reports whether any waiter on f still wants the result.
func (s *Service) alive(f *flight) bool {
	s.flightsMu.Lock()
	defer s.flightsMu.Unlock()

	for w := range f.waiters {
		if w.ctx.Err() == nil {
			return true
		}
	}
	return false
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
