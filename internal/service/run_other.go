//go:build !windows

package service

import "context"

// IsService reports whether the process was started by a service manager.
// Outside Windows there is no such manager to detect; systemd and friends
// capture stdout, so console logging stays useful.
func IsService() bool {
	return false
}

// Run runs c with a ConsolePlatform until it stops.
func Run(ctx context.Context, c *Controller) (Result, error) {
	p := NewConsolePlatform()
	defer p.Close()

	return c.Run(ctx, p)
}
