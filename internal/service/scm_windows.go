//go:build windows

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/windows/svc"

	"workservice/internal/logger"
)

var errPlatformClosed = errors.New("service control manager session closed")

// scmHandler implements svc.Handler by running a Controller on an
// scmPlatform built from the channels svc.Run hands to Execute.
type scmHandler struct {
	ctx  context.Context
	ctrl *Controller

	result Result
	err    error
}

// Execute implements the svc.Handler interface.
func (h *scmHandler) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (svcSpecificEC bool, exitCode uint32) {
	log := logger.WithComponent("windows-service")
	log.Info().Strs("args", args).Msg("Service dispatcher started")

	p := newSCMPlatform(r, changes)
	defer p.close()

	h.result, h.err = h.ctrl.Run(h.ctx, p)

	code := h.result.ExitCode
	if reported, ok := p.stoppedExitCode(); ok {
		code = reported
	}
	if h.err != nil && code == ExitOK {
		code = ExitStartupFailed
	}
	return code != ExitOK, code
}

// scmPlatform adapts the channels of svc.Handler.Execute to Platform.
// The terminal Stopped report is never sent on changes: svc sends it itself
// once Execute returns, using Execute's exit code.
type scmPlatform struct {
	requests <-chan svc.ChangeRequest
	changes  chan<- svc.Status

	// mu orders sends on changes and guards the fields below.
	mu       sync.Mutex
	last     svc.Status
	sent     bool
	stopped  bool
	exitCode uint32

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newSCMPlatform(r <-chan svc.ChangeRequest, changes chan<- svc.Status) *scmPlatform {
	return &scmPlatform{
		requests: r,
		changes:  changes,
		done:     make(chan struct{}),
	}
}

func (p *scmPlatform) Register(h ControlHandler) (StatusHandle, error) {
	if h == nil {
		return nil, errors.New("nil control handler")
	}
	p.wg.Add(1)
	go p.pump(h)
	return p, nil
}

// pump delivers change requests to h until the platform is closed.
func (p *scmPlatform) pump(h ControlHandler) {
	defer p.wg.Done()
	log := logger.WithComponent("windows-service")

	for {
		select {
		case <-p.done:
			return
		case req := <-p.requests:
			res := h(ControlCode(req.Cmd))
			if res == ResultNotImplemented {
				// svc gives the handler no way to refuse a control.
				log.Warn().Uint32("cmd", uint32(req.Cmd)).Msg("Unsupported service control command")
				continue
			}
			if req.Cmd == svc.Interrogate && !p.answerInterrogate(req.CurrentStatus) {
				return
			}
		}
	}
}

// answerInterrogate repeats the last status sent, falling back to the one
// svc recorded. Nothing is sent once Stopped has been reported. It returns
// false if the platform closed while sending.
func (p *scmPlatform) answerInterrogate(current svc.Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return true
	}
	reply := current
	if p.sent {
		reply = p.last
	}
	select {
	case p.changes <- reply:
		return true
	case <-p.done:
		return false
	}
}

func (p *scmPlatform) SetStatus(st Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return errPlatformClosed
	}
	if st.State == StateStopped {
		p.stopped = true
		p.exitCode = st.ExitCode
		return nil
	}

	s := toSvcStatus(st)
	select {
	case p.changes <- s:
		p.last = s
		p.sent = true
		return nil
	case <-p.done:
		return errPlatformClosed
	}
}

// stoppedExitCode returns the exit code of the Stopped report, if one was made.
func (p *scmPlatform) stoppedExitCode() (uint32, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode, p.stopped
}

func (p *scmPlatform) close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}

// toSvcStatus maps the non-terminal states. Stopped is reported by svc from
// Execute's return values.
func toSvcStatus(st Status) svc.Status {
	s := svc.Status{
		WaitHint: uint32(st.WaitHint / time.Millisecond),
	}
	switch st.State {
	case StateStarting:
		s.State = svc.StartPending
	case StateRunning:
		s.State = svc.Running
	default:
		s.State = svc.StopPending
	}
	if st.Accepts&AcceptStop != 0 {
		s.Accepts |= svc.AcceptStop
	}
	return s
}
