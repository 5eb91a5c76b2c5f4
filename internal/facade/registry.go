// Package facade holds the process-wide registration of the console sink
// with log/slog.
package facade

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Nao-Mk2/loggify/internal/model"
)

// ErrAlreadyRegistered is returned by every Register call after the first.
var ErrAlreadyRegistered = errors.New("logger already initialized")

// Registry accepts exactly one handler and installs it as the slog default.
type Registry struct {
	registered atomic.Bool
	threshold  atomic.Int64
	setDefault func(*slog.Logger)

	mu     sync.RWMutex
	logger *slog.Logger
}

// Default is the registry behind slog.Default for this process.
var Default = New(nil)

// New returns an empty registry. install receives the logger on successful
// registration; nil means slog.SetDefault.
func New(install func(*slog.Logger)) *Registry {
	if install == nil {
		install = slog.SetDefault
	}
	r := &Registry{setDefault: install}
	r.threshold.Store(int64(model.SeverityTrace))
	return r
}

// Register installs h. Only the first call succeeds.
func (r *Registry) Register(h slog.Handler) error {
	if !r.registered.CompareAndSwap(false, true) {
		return ErrAlreadyRegistered
	}
	l := slog.New(&gate{next: h, r: r})
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
	r.setDefault(l)
	return nil
}

// Registered reports whether a handler has been installed.
func (r *Registry) Registered() bool { return r.registered.Load() }

// Logger returns the installed logger, or nil before registration.
func (r *Registry) Logger() *slog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// SetThreshold sets the global fast-path threshold checked before the
// handler sees a record.
func (r *Registry) SetThreshold(min model.Severity) {
	r.threshold.Store(int64(min))
}

// Threshold returns the global threshold.
func (r *Registry) Threshold() model.Severity {
	return model.Severity(r.threshold.Load())
}

type gate struct {
	next slog.Handler
	r    *Registry
}

func (g *gate) Enabled(ctx context.Context, l slog.Level) bool {
	return model.FromSlogLevel(l).Passes(g.r.Threshold()) && g.next.Enabled(ctx, l)
}

func (g *gate) Handle(ctx context.Context, rec slog.Record) error {
	return g.next.Handle(ctx, rec)
}

func (g *gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &gate{next: g.next.WithAttrs(attrs), r: g.r}
}

func (g *gate) WithGroup(name string) slog.Handler {
	return &gate{next: g.next.WithGroup(name), r: g.r}
}

// Owns reports whether h is a handler installed by a Registry.
func Owns(h slog.Handler) bool {
	_, ok := h.(*gate)
	return ok
}
