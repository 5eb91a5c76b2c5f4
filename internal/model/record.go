package model

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Severity is the closed set of record severities. Lower values are more
// severe, so Error < Warn < Info < Debug < Trace.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarn
	SeverityInfo
	SeverityDebug
	SeverityTrace
)

// LevelTrace is the slog level used for trace records. slog has no trace
// level of its own.
const LevelTrace = slog.LevelDebug - 4

var severityNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG", "TRACE"}

var severityLevels = [...]slog.Level{slog.LevelError, slog.LevelWarn, slog.LevelInfo, slog.LevelDebug, LevelTrace}

// Valid reports whether s is one of the five defined severities.
func (s Severity) Valid() bool {
	return s >= SeverityError && s <= SeverityTrace
}

func (s Severity) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// Passes reports whether s is at least as severe as min.
func (s Severity) Passes(min Severity) bool {
	return s <= min
}

// SlogLevel returns the slog level that s maps onto.
func (s Severity) SlogLevel() slog.Level {
	if !s.Valid() {
		return slog.LevelInfo
	}
	return severityLevels[s]
}

// FromSlogLevel buckets an arbitrary slog level into a Severity.
func FromSlogLevel(l slog.Level) Severity {
	switch {
	case l >= slog.LevelError:
		return SeverityError
	case l >= slog.LevelWarn:
		return SeverityWarn
	case l >= slog.LevelInfo:
		return SeverityInfo
	case l >= slog.LevelDebug:
		return SeverityDebug
	default:
		return SeverityTrace
	}
}

// ParseSeverity parses a case-insensitive severity name such as "debug" or
// "WARN". "warning" is accepted as an alias of warn.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "info":
		return SeverityInfo, nil
	case "debug":
		return SeverityDebug, nil
	case "trace":
		return SeverityTrace, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", s)
}

// Record is a single log record as seen by the filter and formatter.
type Record struct {
	Severity Severity
	Target   string
	Message  string
	Time     time.Time
}
