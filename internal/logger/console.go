// Package logger provides logging implementations for sitecheck execution.
//
// The logger package offers structured logging of execution progress at the
// phase and summary levels. Implementations are thread-safe. Color output is
// enabled automatically when writing to a terminal.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/callum/sitecheck/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// Console logs execution progress to a writer with [HH:MM:SS] timestamps.
// It implements the pipeline Logger interface plus general leveled logging.
type Console struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsole creates a Console writing to w. If w is nil, messages are
// discarded. Invalid or empty logLevel defaults to "info".
func NewConsole(w io.Writer, logLevel string) *Console {
	return &Console{
		writer:      w,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that supports colors.
func isTerminal(w io.Writer) bool {
	switch w {
	case os.Stdout:
		return isatty.IsTerminal(os.Stdout.Fd()) && !color.NoColor
	case os.Stderr:
		return isatty.IsTerminal(os.Stderr.Fd()) && !color.NoColor
	}
	return false
}

func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	}
	return levelInfo
}

func (c *Console) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(c.logLevel)
}

// LogTrace logs a trace-level message.
func (c *Console) LogTrace(message string) { c.logWithLevel("TRACE", message) }

// LogDebug logs a debug-level message.
func (c *Console) LogDebug(message string) { c.logWithLevel("DEBUG", message) }

// LogInfo logs an info-level message.
func (c *Console) LogInfo(message string) { c.logWithLevel("INFO", message) }

// LogWarn logs a warning-level message.
func (c *Console) LogWarn(message string) { c.logWithLevel("WARN", message) }

// LogError logs an error-level message.
func (c *Console) LogError(message string) { c.logWithLevel("ERROR", message) }

func (c *Console) logWithLevel(level, message string) {
	if c.writer == nil || !c.shouldLog(strings.ToLower(level)) {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ts := timestamp()
	if !c.colorOutput {
		fmt.Fprintf(c.writer, "[%s] [%s] %s\n", ts, level, message)
		return
	}

	var coloredLevel string
	switch level {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}
	fmt.Fprintf(c.writer, "[%s] [%s] %s\n", ts, coloredLevel, message)
}

// LogPhaseStart logs the start of a phase at INFO level.
func (c *Console) LogPhaseStart(phase int, items int) {
	if c.writer == nil || !c.shouldLog("info") {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := fmt.Sprintf("Phase %d", phase)
	if c.colorOutput {
		name = color.New(color.Bold).Sprint(name)
	}
	fmt.Fprintf(c.writer, "[%s] Starting %s: %d work items\n", timestamp(), name, items)
}

// LogPhaseComplete logs the completion of a phase at INFO level.
func (c *Console) LogPhaseComplete(phase int, duration time.Duration, results []models.TestResult) {
	if c.writer == nil || !c.shouldLog("info") {
		return
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	name := fmt.Sprintf("Phase %d", phase)
	status := "complete"
	if c.colorOutput {
		name = color.New(color.Bold).Sprint(name)
		if failed == 0 {
			status = color.New(color.FgGreen).Sprint(status)
		} else {
			status = color.New(color.FgYellow).Sprint(status)
		}
	}
	fmt.Fprintf(c.writer, "[%s] %s %s: %d results, %d failed (%s)\n",
		timestamp(), name, status, len(results), failed, formatDuration(duration))
}

// LogTestResult logs one settled result at DEBUG level.
func (c *Console) LogTestResult(result models.TestResult) {
	if c.writer == nil || !c.shouldLog("debug") {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	target := result.URL
	if target == "" {
		target = "site-wide"
	}

	status := result.Status
	if c.colorOutput {
		switch result.Status {
		case models.StatusSuccess:
			status = color.New(color.FgGreen).Sprint(status)
		case models.StatusFailed:
			status = color.New(color.FgRed).Sprint(status)
		default:
			status = color.New(color.FgYellow).Sprint(status)
		}
	}
	fmt.Fprintf(c.writer, "[%s] %s (%s): %s\n", timestamp(), result.TestType, target, status)
}

// LogProgress logs the phase progress bar at INFO level.
func (c *Console) LogProgress(phase, completed, total int) {
	if c.writer == nil || !c.shouldLog("info") {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	pb := NewProgressBar(total, 10, c.colorOutput)
	pb.Update(completed)
	fmt.Fprintf(c.writer, "[%s] Phase %d progress: %s\n", timestamp(), phase, pb.Render())
}

// LogSummary logs the session summary at INFO level.
func (c *Console) LogSummary(summary models.SessionSummary) {
	if c.writer == nil || !c.shouldLog("info") {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ts := timestamp()
	header := "=== Session Summary ==="
	if c.colorOutput {
		header = color.New(color.Bold).Sprint(header)
	}
	fmt.Fprintf(c.writer, "[%s] %s\n", ts, header)
	fmt.Fprintf(c.writer, "[%s] Session: %s\n", ts, summary.SessionID)
	fmt.Fprintf(c.writer, "[%s] Pages: %d\n", ts, summary.TotalPages)
	fmt.Fprintf(c.writer, "[%s] Tests run: %d\n", ts, summary.TestsRun)

	succeeded := fmt.Sprintf("Succeeded: %d", summary.TestsSucceeded)
	if c.colorOutput {
		succeeded = color.New(color.FgGreen).Sprint(succeeded)
	}
	fmt.Fprintf(c.writer, "[%s] %s\n", ts, succeeded)

	failed := fmt.Sprintf("Failed: %d", summary.TestsFailed)
	if c.colorOutput && summary.TestsFailed > 0 {
		failed = color.New(color.FgRed).Sprint(failed)
	}
	fmt.Fprintf(c.writer, "[%s] %s\n", ts, failed)
	fmt.Fprintf(c.writer, "[%s] Duration: %s\n", ts, formatDuration(summary.Duration()))

	if len(summary.Errors) > 0 {
		label := "Errors:"
		if c.colorOutput {
			label = color.New(color.FgRed).Sprint(label)
		}
		fmt.Fprintf(c.writer, "[%s] %s\n", ts, label)
		for _, e := range summary.Errors {
			fmt.Fprintf(c.writer, "[%s]   - %s\n", ts, e)
		}
	}
}

// timestamp returns the current time formatted as HH:MM:SS.
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a duration to a compact human-readable string.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOp discards all log messages. Useful for tests.
type NoOp struct{}

// NewNoOp creates a NoOp logger.
func NewNoOp() *NoOp { return &NoOp{} }

// LogPhaseStart is a no-op implementation.
func (n *NoOp) LogPhaseStart(phase int, items int) {}

// LogPhaseComplete is a no-op implementation.
func (n *NoOp) LogPhaseComplete(phase int, duration time.Duration, results []models.TestResult) {}

// LogTestResult is a no-op implementation.
func (n *NoOp) LogTestResult(result models.TestResult) {}

// LogProgress is a no-op implementation.
func (n *NoOp) LogProgress(phase, completed, total int) {}

// LogSummary is a no-op implementation.
func (n *NoOp) LogSummary(summary models.SessionSummary) {}
