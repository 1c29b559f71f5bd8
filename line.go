package subghz

import "sync/atomic"

var _ IRQLine = (*Line)(nil)

// Line is a software-masked radio interrupt line. Pin interrupt handlers or
// GPIO watchers report rising edges of DIO1 with Edge and the line calls its
// handler while enabled. Edges seen while disabled are latched as pending
// until Unpend is called. It is safe to use from an interrupt context.
type Line struct {
	enabled atomic.Bool
	pending atomic.Bool
	handler atomic.Pointer[func()]
}

// SetHandler sets the function called on an enabled edge, usually
// Radio.HandleInterrupt.
func (l *Line) SetHandler(fn func()) {
	l.handler.Store(&fn)
}

// Enable unmasks the line. A pending edge is delivered immediately.
func (l *Line) Enable() {
	l.enabled.Store(true)
	if l.pending.Swap(false) {
		l.fire()
	}
}

func (l *Line) Disable() { l.enabled.Store(false) }

func (l *Line) Unpend() { l.pending.Store(false) }

// Pending reports whether an edge was latched while the line was disabled.
func (l *Line) Pending() bool { return l.pending.Load() }

// Edge reports a rising edge on the interrupt pin.
func (l *Line) Edge() {
	if !l.enabled.Load() {
		l.pending.Store(true)
		return
	}
	l.fire()
}

func (l *Line) fire() {
	if fn := l.handler.Load(); fn != nil {
		(*fn)()
	}
}
