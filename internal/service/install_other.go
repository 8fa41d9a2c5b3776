//go:build !windows

package service

// Install is only supported on Windows; use the host's own unit files elsewhere.
func Install(name, displayName, description string, args ...string) error {
	return ErrUnsupported
}

// Remove is only supported on Windows.
func Remove(name string) error {
	return ErrUnsupported
}
