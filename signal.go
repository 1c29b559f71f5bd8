package subghz

import "context"

// Signal is a single slot wake up flag shared between an interrupt handler
// and the task waiting on it. Raising an already raised signal is a no-op.
type Signal struct {
	c chan struct{}
}

func NewSignal() *Signal {
	return &Signal{c: make(chan struct{}, 1)}
}

// Raise sets the signal and wakes the waiter, if any. It never blocks
// so it may be called from an interrupt handler.
func (s *Signal) Raise() {
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// Reset clears a pending signal.
func (s *Signal) Reset() {
	select {
	case <-s.c:
	default:
	}
}

// Wait blocks until the signal is raised or ctx is done. A successful Wait
// consumes the signal.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
