// Package service runs one long-lived task under the host's service manager.
//
// A Controller registers a control handler with a Platform, reports status
// transitions to it, and races the Task against a one-shot stop signal.
// On Windows the platform is the Service Control Manager; elsewhere, and on
// Windows consoles, OS interrupt signals are translated into the same
// control codes.
package service

import (
	"context"
	"errors"
)

var (
	// ErrStartup wraps every fatal startup failure returned by Controller.Run.
	ErrStartup = errors.New("service startup failed")
	// ErrAlreadyRun is returned when a Controller is run a second time.
	ErrAlreadyRun = errors.New("controller already run")
	// ErrUnsupported is returned by operations the current OS cannot perform.
	ErrUnsupported = errors.New("not supported on this platform")
)

// Task is the workload supervised by the Controller.
type Task interface {
	// Prepare acquires what Run needs (e.g. binds the listener). An error is
	// a fatal startup failure and Run is never called.
	Prepare(ctx context.Context) error

	// Run blocks until ctx is cancelled or the task ends on its own.
	// nil means the task completed; an error means it failed.
	Run(ctx context.Context) error
}

// RunFunc is a Task without a prepare step.
type RunFunc func(ctx context.Context) error

// Func adapts fn to a Task.
func Func(fn RunFunc) Task {
	return funcTask(fn)
}

type funcTask RunFunc

func (funcTask) Prepare(context.Context) error { return nil }

func (f funcTask) Run(ctx context.Context) error { return f(ctx) }
