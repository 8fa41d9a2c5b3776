package service

import "workservice/internal/logger"

// ControlHandler receives control codes from a Platform. It may be invoked
// from any goroutine, including after the service has stopped.
type ControlHandler func(code ControlCode) ControlResult

// Platform is the host mechanism that delivers control events and receives
// status reports.
type Platform interface {
	Register(h ControlHandler) (StatusHandle, error)
}

// StatusHandle reports status transitions to the platform that issued it.
type StatusHandle interface {
	SetStatus(st Status) error
}

// NopPlatform is used where no supervisor exists. Control events never
// arrive; status reports are only logged at debug level.
type NopPlatform struct{}

// Register always succeeds.
func (NopPlatform) Register(ControlHandler) (StatusHandle, error) {
	return nopHandle{}, nil
}

type nopHandle struct{}

func (nopHandle) SetStatus(st Status) error {
	log := logger.WithComponent("nop-platform")
	log.Debug().
		Stringer("state", st.State).
		Uint32("exit_code", st.ExitCode).
		Msg("Status")
	return nil
}
