//go:build !windows

package service

import "workservice/internal/logger"

// ReportStartupError logs err; there is no system event log outside Windows.
func ReportStartupError(serviceName string, err error) {
	logger.Error().Err(err).Str("service", serviceName).Msg("Failed to start")
}
