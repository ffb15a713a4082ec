// Package audit appends one line per pyocd invocation to a log file.
package audit

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	perrors "github.com/computerscienceiscool/pyocd-probe/pkg/errors"
	"github.com/computerscienceiscool/pyocd-probe/pkg/runner"
)

// Logger handles audit logging operations
type Logger struct {
	logger *log.Logger
	file   *os.File
	runID  string
	now    func() time.Time
}

// NewLogger opens logPath for appending. runID tags every entry written by
// this process.
func NewLogger(logPath, runID string) (*Logger, error) {
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open audit log: %w", err)
	}

	return &Logger{
		logger: log.New(file, "", 0),
		file:   file,
		runID:  runID,
		now:    time.Now,
	}, nil
}

// Log writes an audit log entry
func (a *Logger) Log(cmd runner.Command, elapsed time.Duration, err error) {
	if a == nil || a.logger == nil {
		return
	}

	status := "success"
	errorMsg := ""
	if err != nil {
		status = "failed"
		if kind := perrors.KindOf(err); kind != "" {
			status = strings.ToLower(string(kind))
		}
		errorMsg = strings.ReplaceAll(err.Error(), "\n", " ")
	}

	a.logger.Println(fmt.Sprintf("%s|run:%s|%s|%s|%s|%dms|%s",
		a.now().Format(time.RFC3339),
		a.runID,
		cmd.Program(),
		strings.Join(cmd.Args(), " "),
		status,
		elapsed.Milliseconds(),
		errorMsg,
	))
}

// Observer returns a runner.Observer that records every invocation.
func (a *Logger) Observer() runner.Observer {
	return a.Log
}

// Close closes the audit log file
func (a *Logger) Close() error {
	if a != nil && a.file != nil {
		return a.file.Close()
	}
	return nil
}
