package service

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"workservice/internal/logger"
)

// Replaced in tests.
var (
	signalNotify = signal.Notify
	signalStop   = signal.Stop
)

// quitSignals are the OS signals a console run treats as a stop request.
// syscall.SIGTERM is defined on Windows too, where it is never raised.
func quitSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// ConsolePlatform drives a Controller from a terminal or a non-Windows
// supervisor. Every quit signal is delivered as ControlStop.
type ConsolePlatform struct {
	signals []os.Signal

	mu     sync.Mutex
	sigCh  chan os.Signal
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewConsolePlatform subscribes to signals on Register, or to the default
// quit signals when none are given.
func NewConsolePlatform(signals ...os.Signal) *ConsolePlatform {
	if len(signals) == 0 {
		signals = quitSignals()
	}
	return &ConsolePlatform{signals: signals}
}

// Register starts forwarding quit signals to h.
func (p *ConsolePlatform) Register(h ControlHandler) (StatusHandle, error) {
	if h == nil {
		return nil, errors.New("nil control handler")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errors.New("console platform closed")
	}
	if p.sigCh != nil {
		return nil, errors.New("control handler already registered")
	}

	p.sigCh = make(chan os.Signal, 1)
	p.done = make(chan struct{})
	signalNotify(p.sigCh, p.signals...)

	p.wg.Add(1)
	go p.forward(h)
	return consoleHandle{}, nil
}

func (p *ConsolePlatform) forward(h ControlHandler) {
	defer p.wg.Done()
	log := logger.WithComponent("console")

	for {
		select {
		case sig := <-p.sigCh:
			res := h(ControlStop)
			log.Info().Str("signal", sig.String()).Stringer("result", res).Msg("Received signal")
		case <-p.done:
			return
		}
	}
}

// Close unsubscribes from signals and waits for the forwarder to exit.
func (p *ConsolePlatform) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.sigCh != nil {
		signalStop(p.sigCh)
		close(p.done)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

type consoleHandle struct{}

func (consoleHandle) SetStatus(st Status) error {
	log := logger.WithComponent("console")
	ev := log.Info()
	if st.Err != nil {
		ev = log.Error().Err(st.Err)
	}
	ev.Stringer("state", st.State).
		Stringer("accepts", st.Accepts).
		Uint32("exit_code", st.ExitCode).
		Msg("Service state changed")
	return nil
}
