package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFileName is the file WriteStartupErrorFile writes into logDir.
const StartupErrorFileName = "startup-error.log"

// WriteStartupErrorFile records why serviceName failed to start in
// logDir/startup-error.log, overwriting any earlier record. It is meant for
// failures that happen before logging is up.
func WriteStartupErrorFile(logDir, serviceName string, err error) {
	_ = os.MkdirAll(logDir, 0755)

	f, ferr := os.Create(filepath.Join(logDir, StartupErrorFileName))
	if ferr != nil {
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] STARTUP ERROR service=%s pid=%d\n%v\n", ts, serviceName, os.Getpid(), err)
}
