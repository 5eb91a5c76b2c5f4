package loggify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/Nao-Mk2/loggify/internal/facade"
	"github.com/Nao-Mk2/loggify/internal/filter"
	"github.com/Nao-Mk2/loggify/internal/format"
)

// DefaultTimeFormat is the strftime pattern used unless WithTimeFormat is
// called.
const DefaultTimeFormat = format.DefaultTimeFormat

// diagnostics receives target dumps and remote failures. It never writes to
// the registered sink.
var diagnostics = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

// Builder collects the sink configuration. It is meant to be used from a
// single goroutine and consumed by Build.
type Builder struct {
	level       Level
	exclude     []string
	timeFormat  string
	targetDebug bool
	color       bool
	out         io.Writer
	aws         *AWSBuilder
	onRemoteErr func(error)
	diag        *slog.Logger
	err         error
}

// NewBuilder returns a Builder with level Info, no exclusions, the default
// time format and colors enabled.
func NewBuilder() *Builder {
	return &Builder{
		level:      LevelInfo,
		timeFormat: DefaultTimeFormat,
		color:      true,
		out:        os.Stdout,
		diag:       diagnostics,
	}
}

// WithLevel sets the minimum severity.
func (b *Builder) WithLevel(level Level) *Builder {
	b.level = level
	return b
}

// AddExclude suppresses every target containing name.
func (b *Builder) AddExclude(name string) *Builder {
	b.exclude = append(b.exclude, name)
	return b
}

// WithTimeFormat sets the strftime pattern of the timestamp.
func (b *Builder) WithTimeFormat(pattern string) *Builder {
	b.timeFormat = pattern
	return b
}

// WithTargetDebug prints each record's target to stderr, to find out what
// to exclude.
func (b *Builder) WithTargetDebug(on bool) *Builder {
	b.targetDebug = on
	return b
}

// WithoutColor disables escape sequences.
func (b *Builder) WithoutColor() *Builder {
	b.color = false
	return b
}

// WithOutput replaces standard output.
func (b *Builder) WithOutput(w io.Writer) *Builder {
	b.out = w
	return b
}

// WithAWS mirrors each message to CloudWatch Logs.
func (b *Builder) WithAWS(a *AWSBuilder) *Builder {
	b.aws = a
	return b
}

// OnRemoteError replaces the default reporting of failed remote appends.
func (b *Builder) OnRemoteError(fn func(error)) *Builder {
	b.onRemoteErr = fn
	return b
}

// WithDiagnostics replaces the stderr logger used for target dumps and the
// default remote error report. A logger that would feed back into the sink,
// such as slog.Default() before Build, is replaced by the stderr logger.
func (b *Builder) WithDiagnostics(l *slog.Logger) *Builder {
	if l != nil {
		b.diag = l
	}
	return b
}

// Handler builds the sink without registering it, for use with slog.New.
// The remote stream, if any, is provisioned here.
func (b *Builder) Handler(ctx context.Context) (*Handler, error) {
	if b.err != nil {
		return nil, b.err
	}
	f, err := format.New(b.timeFormat, b.color)
	if err != nil {
		return nil, err
	}
	diag := b.diag
	if routesToSink(diag.Handler()) {
		diag = diagnostics
	}
	opts := []filter.Option{filter.WithExclude(b.exclude...)}
	if b.targetDebug {
		opts = append(opts, filter.WithTargetDebug(diag))
	}
	h := &Handler{
		policy:      filter.New(b.level, opts...),
		format:      f,
		out:         b.out,
		mu:          &sync.Mutex{},
		onRemoteErr: b.onRemoteErr,
	}
	if h.onRemoteErr == nil {
		h.onRemoteErr = func(err error) { diag.Error("remote log append failed", "err", err) }
	}
	if b.aws != nil {
		s, err := b.aws.build(ctx)
		if err != nil {
			return nil, err
		}
		h.mirror = s
	}
	return h, nil
}

// routesToSink reports whether records given to h can come back through
// slog.Default. The pre-registration default handler forwards to the log
// package, which registration redirects into the sink.
func routesToSink(h slog.Handler) bool {
	if _, ok := h.(*Handler); ok {
		return true
	}
	return facade.Owns(h) || fmt.Sprintf("%T", h) == "*slog.defaultHandler"
}

// Build creates the sink, registers it as the slog default and sets the
// global threshold to the minimum severity. Only the first successful Build
// in a process registers; later calls return ErrAlreadyInitialized.
func (b *Builder) Build(ctx context.Context) error {
	return b.build(ctx, facade.Default)
}

func (b *Builder) build(ctx context.Context, reg *facade.Registry) error {
	if reg.Registered() {
		return ErrAlreadyInitialized
	}
	h, err := b.Handler(ctx)
	if err != nil {
		return err
	}
	if err := reg.Register(h); err != nil {
		return err
	}
	reg.SetThreshold(b.level)
	return nil
}
