// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/monadic/webex-provisioner/internal/provision"
)

// LogFileName is the structured log written under the log directory.
const LogFileName = "webex-provisioner.log"

// newLogger builds a JSON logger appending to <dir>/webex-provisioner.log.
// The terminal is left to the wizard and command output.
func newLogger(dir, level string, verbose bool) (*zap.Logger, error) {
	if dir == "" {
		return zap.NewNop(), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", level, err)
		}
	}
	if verbose {
		lvl.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{filepath.Join(dir, LogFileName)}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// JobLogger writes a plain-text log of one bulk run.
type JobLogger struct {
	file      *os.File
	startTime time.Time
	command   string
}

var _ provision.RunRecorder = (*JobLogger)(nil)

// NewJobLogger creates <dir>/<command>-<timestamp>.log.
func NewJobLogger(dir, command string) (*JobLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02-150405")
	logPath := filepath.Join(dir, fmt.Sprintf("%s-%s.log", command, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	logger := &JobLogger{
		file:      file,
		startTime: time.Now(),
		command:   command,
	}
	logger.writeHeader()
	return logger, nil
}

func (l *JobLogger) writeHeader() {
	l.file.WriteString(strings.Repeat("=", 80) + "\n")
	l.file.WriteString(fmt.Sprintf("Webex Provisioner: %s\n", l.command))
	l.file.WriteString(fmt.Sprintf("Started: %s\n", l.startTime.Format(time.RFC3339)))
	l.file.WriteString(strings.Repeat("=", 80) + "\n\n")
}

// Log writes a message to the log file
func (l *JobLogger) Log(format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05")
	l.file.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, fmt.Sprintf(format, args...)))
}

// Section writes a section header
func (l *JobLogger) Section(title string) {
	if l == nil || l.file == nil {
		return
	}
	l.file.WriteString(fmt.Sprintf("\n--- %s ---\n", title))
}

// Start records the job being run.
func (l *JobLogger) Start(job *provision.Job, total int) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("JOB")
	if job != nil {
		l.Log("File: %s (%d bytes)", job.Name, len(job.Data))
	}
	l.Log("Rows: %d", total)
	l.Section("ROWS")
}

// Result records one row.
func (l *JobLogger) Result(row int, name, id string, err error) {
	if l == nil || l.file == nil {
		return
	}
	if err != nil {
		l.Log("  row %d %q FAILED: %v", row, name, err)
		return
	}
	l.Log("  row %d %q created id=%s", row, name, id)
}

// Finish records the totals.
func (l *JobLogger) Finish(created, failed int, output string) {
	if l == nil || l.file == nil {
		return
	}
	l.Section("RESULT")
	l.Log("Created: %d", created)
	l.Log("Failed: %d", failed)
	if output != "" {
		l.Log("Results: %s", output)
	}
	l.Log("Duration: %s", time.Since(l.startTime).Round(time.Millisecond))
}

// Close closes the log file and returns its path
func (l *JobLogger) Close() string {
	if l == nil || l.file == nil {
		return ""
	}

	l.file.WriteString(fmt.Sprintf("\n\nCompleted: %s\n", time.Now().Format(time.RFC3339)))
	l.file.WriteString(fmt.Sprintf("Duration: %s\n", time.Since(l.startTime).Round(time.Millisecond)))

	path := l.file.Name()
	l.file.Close()
	l.file = nil
	return path
}
