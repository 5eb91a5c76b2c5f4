// Package loggify is a console sink for log/slog.
//
// Records are filtered by a minimum severity and by target exclusion, and
// written to standard output as one line each:
//
//	[05.03.2024 07:08:09] > Info  > server started
//
// A record's target is the "target" attribute attached to the logger (see
// Named and Target) or, without one, the package path of the calling code.
// A target is dropped when any exclusion string is a substring of it.
//
// The simplest setup registers the sink with default settings:
//
//	if err := loggify.Init(ctx); err != nil {
//		log.Fatal(err)
//	}
//	slog.Info("My info message")
//	slog.Debug("Will not be shown")
//
// Builder exposes the remaining settings, including mirroring every message
// to a CloudWatch Logs stream:
//
//	err := loggify.NewBuilder().
//		WithLevel(loggify.LevelTrace).
//		AddExclude("github.com/aws").
//		WithTimeFormat("%H:%M:%S").
//		WithAWS(loggify.AWS().WithLogGroupName("my-app")).
//		Build(ctx)
//
// Registration is one-shot: a second Build in the same process returns
// ErrAlreadyInitialized and leaves the first sink in place.
package loggify

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/Nao-Mk2/loggify/internal/facade"
	"github.com/Nao-Mk2/loggify/internal/model"
	"github.com/Nao-Mk2/loggify/internal/remote"
)

// Level is a record severity. LevelError is the most severe.
type Level = model.Severity

const (
	LevelError = model.SeverityError
	LevelWarn  = model.SeverityWarn
	LevelInfo  = model.SeverityInfo
	LevelDebug = model.SeverityDebug
	LevelTrace = model.SeverityTrace
)

// SlogLevelTrace is the slog level of trace records.
const SlogLevelTrace = model.LevelTrace

// TargetKey is the attribute key carrying a record's target.
const TargetKey = "target"

// ErrAlreadyInitialized is returned by Build once a sink is registered.
var ErrAlreadyInitialized = facade.ErrAlreadyRegistered

// ProvisionError reports that the remote log stream could not be created.
type ProvisionError = remote.ProvisionError

// AppendError reports that a message could not be mirrored remotely.
type AppendError = remote.AppendError

// ParseLevel parses a severity name such as "debug".
func ParseLevel(s string) (Level, error) { return model.ParseSeverity(s) }

// Init registers the sink with default settings.
func Init(ctx context.Context) error {
	return NewBuilder().Build(ctx)
}

// InitWithLevel registers the sink with minimum severity level.
func InitWithLevel(ctx context.Context, level Level) error {
	return NewBuilder().WithLevel(level).Build(ctx)
}

// Target returns the attribute that names a record's target.
func Target(name string) slog.Attr { return slog.String(TargetKey, name) }

// Named returns the default logger with its target set to name.
func Named(name string) *slog.Logger { return slog.Default().With(Target(name)) }

// Trace logs at trace severity on the default logger.
func Trace(msg string, args ...any) {
	logTrace(context.Background(), msg, args)
}

// TraceContext is Trace with a context.
func TraceContext(ctx context.Context, msg string, args ...any) {
	logTrace(ctx, msg, args)
}

func logTrace(ctx context.Context, msg string, args []any) {
	l := slog.Default()
	if !l.Enabled(ctx, model.LevelTrace) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:]) // skip Callers, logTrace and Trace or TraceContext
	r := slog.NewRecord(time.Now(), model.LevelTrace, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
