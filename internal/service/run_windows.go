//go:build windows

package service

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/svc"

	"workservice/internal/logger"
)

// IsService reports whether the process was started by the Service Control
// Manager.
func IsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to detect service mode")
		return false
	}
	return isService
}

// Run runs c under the Service Control Manager when started as a service,
// or with a ConsolePlatform when started from a console.
func Run(ctx context.Context, c *Controller) (Result, error) {
	if !IsService() {
		p := NewConsolePlatform()
		defer p.Close()
		return c.Run(ctx, p)
	}

	h := &scmHandler{ctx: ctx, ctrl: c}
	if err := svc.Run(c.Name(), h); err != nil {
		return Result{Reason: ReasonStartupFailed, ExitCode: ExitStartupFailed, Err: err},
			fmt.Errorf("%w: service dispatcher: %w", ErrStartup, err)
	}
	return h.result, h.err
}
