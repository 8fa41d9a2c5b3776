package service

import (
	"sync"
	"sync/atomic"
)

// StopSignal is a one-shot stop notification. Fire may be called from any
// goroutine, any number of times; only the first call has an effect.
type StopSignal struct {
	once   sync.Once
	done   chan struct{}
	fired  atomic.Bool
	source atomic.Uint32
}

// NewStopSignal returns an unfired signal.
func NewStopSignal() *StopSignal {
	return &StopSignal{done: make(chan struct{})}
}

// Fire fires the signal and reports whether this call was the one that did.
func (s *StopSignal) Fire(source ControlCode) bool {
	first := false
	s.once.Do(func() {
		s.source.Store(uint32(source))
		s.fired.Store(true)
		close(s.done)
		first = true
	})
	return first
}

// Done is closed once the signal has fired.
func (s *StopSignal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has fired.
func (s *StopSignal) Fired() bool {
	return s.fired.Load()
}

// Source returns the control code of the first Fire call, or 0.
func (s *StopSignal) Source() ControlCode {
	return ControlCode(s.source.Load())
}
