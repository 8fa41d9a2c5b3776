//go:build windows

package service

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// startupFailureEventID is the event id used for fatal startup errors.
const startupFailureEventID = 1

// ReportStartupError writes err to the Windows Event Log under the service's
// source, so "sc start" and Event Viewer show why the service did not come up
// even when the logger was never initialized.
func ReportStartupError(serviceName string, err error) {
	// Fails harmlessly when the source already exists.
	_ = eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(serviceName)
	if openErr != nil {
		return
	}
	defer elog.Close()

	_ = elog.Error(startupFailureEventID, fmt.Sprintf("%s failed to start: %v", serviceName, err))
}
