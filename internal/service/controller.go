package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"workservice/internal/logger"
)

// startWaitHint is how long the platform should expect Starting to last.
const startWaitHint = 10 * time.Second

// Reason explains why a Controller stopped.
type Reason int

const (
	ReasonStartupFailed Reason = iota + 1
	ReasonStopRequested
	ReasonCancelled
	ReasonCompleted
	ReasonFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonStartupFailed:
		return "startup-failed"
	case ReasonStopRequested:
		return "stop-requested"
	case ReasonCancelled:
		return "cancelled"
	case ReasonCompleted:
		return "completed"
	case ReasonFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of Controller.Run.
type Result struct {
	Reason   Reason
	ExitCode uint32
	Err      error
}

// Option configures a Controller.
type Option func(*Controller)

// WithUserStopCode sets the user-defined control code treated like Stop.
// Codes outside the user-defined range 128-255 are ignored.
func WithUserStopCode(code ControlCode) Option {
	return func(c *Controller) {
		if !code.isUserDefined() {
			log := logger.WithComponent("controller")
			log.Warn().Stringer("code", code).Msg("Ignored user stop code outside 128-255")
			return
		}
		c.userStopCode = code
	}
}

// WithDrainTimeout makes the controller wait up to d for the task to return
// after a stop before reporting Stopped. Zero (the default) does not wait.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.drainTimeout = d
		}
	}
}

// WithClock replaces the wall clock used for the drain timeout.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// Controller supervises one Task for the lifetime of the process.
// A Controller is single-use.
type Controller struct {
	name         string
	task         Task
	userStopCode ControlCode
	drainTimeout time.Duration
	clock        clock.Clock

	stop    *StopSignal
	started atomic.Bool
	state   atomic.Int32

	// reportMu orders status reports; HandleControl never takes it.
	reportMu sync.Mutex
	handle   StatusHandle
}

// NewController creates a controller for task, registered under name.
func NewController(name string, task Task, opts ...Option) *Controller {
	c := &Controller{
		name:         name,
		task:         task,
		userStopCode: ControlCode(130),
		clock:        clock.New(),
		stop:         NewStopSignal(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Name returns the service name.
func (c *Controller) Name() string { return c.name }

// State returns the last state reported to the platform.
func (c *Controller) State() State { return State(c.state.Load()) }

// Stop requests shutdown as if the platform had sent ControlStop.
func (c *Controller) Stop() {
	c.HandleControl(ControlStop)
}

// Run registers with p, runs the task and blocks until it ends or a stop is
// requested. The returned error is non-nil only for fatal startup failures
// (wrapping ErrStartup) or when the controller was already run.
func (c *Controller) Run(ctx context.Context, p Platform) (Result, error) {
	if !c.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}
	log := logger.WithComponent("controller")

	handle, err := p.Register(c.HandleControl)
	if err != nil {
		err = fmt.Errorf("%w: register control handler: %w", ErrStartup, err)
		return Result{Reason: ReasonStartupFailed, ExitCode: ExitStartupFailed, Err: err}, err
	}
	c.reportMu.Lock()
	c.handle = handle
	c.reportMu.Unlock()

	log.Info().Str("service", c.name).Msg("Control handler registered")

	taskCtx, cancelTask := context.WithCancel(ctx)
	defer cancelTask()

	if err := c.report(Status{State: StateStarting, WaitHint: startWaitHint}); err != nil {
		return c.failStartup(err)
	}

	if err := c.task.Prepare(taskCtx); err != nil {
		return c.failStartup(fmt.Errorf("prepare task: %w", err))
	}
	if err := c.report(Status{State: StateRunning, Accepts: AcceptStop}); err != nil {
		return c.failStartup(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.task.Run(taskCtx)
	}()

	var res Result
	select {
	case err := <-done:
		res = c.taskEnded(ctx, err)

	case <-c.stop.Done():
		log.Info().Stringer("source", c.stop.Source()).Msg("Stop signal received, stopping task")
		res = Result{Reason: ReasonStopRequested, ExitCode: ExitOK}
		c.shutdown(done, cancelTask)

	case <-ctx.Done():
		log.Info().Err(ctx.Err()).Msg("Context cancelled, stopping task")
		res = Result{Reason: ReasonCancelled, ExitCode: ExitOK}
		c.shutdown(done, cancelTask)
	}

	c.report(Status{State: StateStopped, ExitCode: res.ExitCode, Err: res.Err})
	log.Info().
		Stringer("reason", res.Reason).
		Uint32("exit_code", res.ExitCode).
		Msg("Service stopped")
	return res, nil
}

func (c *Controller) taskEnded(ctx context.Context, err error) Result {
	log := logger.WithComponent("controller")

	switch {
	case err == nil:
		log.Info().Msg("Task completed on its own")
		return Result{Reason: ReasonCompleted, ExitCode: ExitOK}
	case ctx.Err() != nil:
		// Parent cancellation raced the select; whatever the task returned
		// is a consequence of it.
		log.Debug().Err(err).Msg("Task returned after parent context was cancelled")
		return Result{Reason: ReasonCancelled, ExitCode: ExitOK}
	default:
		log.Error().Err(err).Msg("Task failed")
		return Result{Reason: ReasonFailed, ExitCode: ExitTaskFailed, Err: err}
	}
}

// shutdown abandons the task and optionally waits for it to unwind.
func (c *Controller) shutdown(done <-chan error, cancelTask context.CancelFunc) {
	log := logger.WithComponent("controller")

	// Armed before the StopPending report so a mock clock advanced by an
	// observer of that report always hits this timer.
	var timeout <-chan time.Time
	if c.drainTimeout > 0 {
		timeout = c.clock.After(c.drainTimeout)
	}

	cancelTask()
	c.report(Status{State: StateStopPending, WaitHint: c.drainTimeout})

	if timeout == nil {
		return
	}
	select {
	case err := <-done:
		log.Debug().Err(err).Msg("Task returned after stop")
	case <-timeout:
		log.Warn().Dur("drain_timeout", c.drainTimeout).Msg("Task still running after drain timeout, abandoning it")
	}
}

func (c *Controller) failStartup(err error) (Result, error) {
	err = fmt.Errorf("%w: %w", ErrStartup, err)
	log := logger.WithComponent("controller")
	log.Error().Err(err).Msg("Startup failed")

	c.report(Status{State: StateStopped, ExitCode: ExitStartupFailed, Err: err})
	return Result{Reason: ReasonStartupFailed, ExitCode: ExitStartupFailed, Err: err}, err
}

// report sends st to the platform if it moves the state forward. Reports
// that would repeat or regress a state are dropped.
func (c *Controller) report(st Status) error {
	c.reportMu.Lock()
	defer c.reportMu.Unlock()
	log := logger.WithComponent("controller")

	cur := State(c.state.Load())
	if !cur.canAdvanceTo(st.State) {
		log.Warn().
			Stringer("current", cur).
			Stringer("requested", st.State).
			Msg("Dropped status report that does not advance state")
		return nil
	}
	c.state.Store(int32(st.State))

	if err := c.handle.SetStatus(st); err != nil {
		log.Error().Err(err).Stringer("state", st.State).Msg("Failed to report status")
		return fmt.Errorf("report %s status: %w", st.State, err)
	}

	ev := log.Info()
	if st.Err != nil {
		ev = log.Error().Err(st.Err)
	}
	ev.Stringer("state", st.State).
		Stringer("accepts", st.Accepts).
		Uint32("exit_code", st.ExitCode).
		Msg("Service status reported")
	return nil
}

// HandleControl is the ControlHandler given to the platform. It never blocks
// and is safe to call from any goroutine at any time.
func (c *Controller) HandleControl(code ControlCode) ControlResult {
	switch code {
	case ControlInterrogate:
		return ResultNoError

	case ControlStop, c.userStopCode:
		if c.State() == StateStopped {
			return ResultNoError
		}
		c.fireStop(code)
		return ResultNoError

	default:
		log := logger.WithComponent("controller")
		log.Warn().Stringer("code", code).Msg("Control code declined")
		return ResultNotImplemented
	}
}

// fireStop is best-effort: it runs on the platform's callback goroutine, so a
// panic here must not take the process down.
func (c *Controller) fireStop(code ControlCode) {
	log := logger.WithComponent("controller")
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Stringer("code", code).Msg("Recovered while firing stop signal")
		}
	}()

	if c.stop.Fire(code) {
		log.Info().Stringer("code", code).Msg("Stop requested")
	} else {
		log.Debug().Stringer("code", code).Msg("Stop already requested")
	}
}
