package service

import (
	"fmt"
	"time"
)

// State is the lifecycle state reported to the hosting platform.
type State int32

const (
	StateStarting State = iota + 1
	StateRunning
	StateStopPending
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopPending:
		return "stop-pending"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// canAdvanceTo reports whether a transition from s to next moves strictly
// forward. The zero State is "nothing reported yet".
func (s State) canAdvanceTo(next State) bool {
	return next > s && next >= StateStarting && next <= StateStopped
}

// Accepted is the bitmask of control codes the service currently accepts.
type Accepted uint32

const (
	AcceptStop Accepted = 1 << iota
)

func (a Accepted) String() string {
	if a&AcceptStop != 0 {
		return "stop"
	}
	return "none"
}

// Process and status exit codes.
const (
	ExitOK            uint32 = 0
	ExitStartupFailed uint32 = 1
	ExitTaskFailed    uint32 = 2
)

// Status is one lifecycle report.
type Status struct {
	State    State
	Accepts  Accepted
	ExitCode uint32
	WaitHint time.Duration
	Err      error // diagnostic for a failing Stopped report
}

// ControlCode is a control event delivered by the hosting platform.
// Codes 128-255 are user-defined, matching the Windows service convention.
type ControlCode uint32

const (
	ControlStop        ControlCode = 1
	ControlInterrogate ControlCode = 4
	ControlShutdown    ControlCode = 5
)

// isUserDefined reports whether c is in the user-defined range 128-255.
func (c ControlCode) isUserDefined() bool {
	return c >= 128 && c <= 255
}

func (c ControlCode) String() string {
	switch {
	case c == ControlStop:
		return "stop"
	case c == ControlInterrogate:
		return "interrogate"
	case c == ControlShutdown:
		return "shutdown"
	case c.isUserDefined():
		return fmt.Sprintf("user(%d)", uint32(c))
	default:
		return fmt.Sprintf("control(%d)", uint32(c))
	}
}

// ControlResult is the acknowledgement returned to the platform.
type ControlResult int

const (
	// ResultNoError acknowledges the control as handled.
	ResultNoError ControlResult = iota
	// ResultNotImplemented explicitly declines the control.
	ResultNotImplemented
)

func (r ControlResult) String() string {
	if r == ResultNotImplemented {
		return "not-implemented"
	}
	return "no-error"
}
