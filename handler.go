package loggify

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Nao-Mk2/loggify/internal/filter"
	"github.com/Nao-Mk2/loggify/internal/format"
	"github.com/Nao-Mk2/loggify/internal/model"
)

// Mirror receives the text of every accepted record.
type Mirror interface {
	PutLog(ctx context.Context, message string) error
}

// Handler is the slog.Handler registered by Build. Its configuration is
// fixed once built; WithAttrs only changes the target.
//
// Attributes other than the target and groups are not rendered. A target
// attribute inside a group is an ordinary attribute and is ignored.
type Handler struct {
	policy      *filter.Policy
	format      *format.Formatter
	out         io.Writer
	mu          *sync.Mutex
	mirror      Mirror
	onRemoteErr func(error)

	target    string
	hasTarget bool
	grouped   bool
}

var _ slog.Handler = (*Handler)(nil)

// Enabled checks the severity, plus the exclusion list when the handler
// carries a target.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	sev := model.FromSlogLevel(level)
	if !h.policy.SeverityEnabled(sev) {
		return false
	}
	return !h.hasTarget || !h.policy.Excluded(h.target)
}

// Handle writes r to the output and mirrors its message. A mirror failure
// goes to the remote error hook; only output errors are returned.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := model.Record{
		Severity: model.FromSlogLevel(r.Level),
		Target:   h.targetOf(r),
		Message:  r.Message,
		Time:     r.Time,
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	if !h.policy.Enabled(rec) {
		return nil
	}

	line := h.format.Render(rec) + "\n"
	h.mu.Lock()
	_, err := io.WriteString(h.out, line)
	h.mu.Unlock()

	if h.mirror != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		if merr := h.mirror.PutLog(ctx, rec.Message); merr != nil && h.onRemoteErr != nil {
			h.onRemoteErr(merr)
		}
	}
	return err
}

// WithAttrs picks up a target attribute; everything else is dropped.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.grouped {
		return h
	}
	target, ok := findTarget(attrs)
	if !ok {
		return h
	}
	h2 := *h
	h2.target, h2.hasTarget = target, true
	return &h2
}

// WithGroup opens a group; later attributes no longer set the target.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" || h.grouped {
		return h
	}
	h2 := *h
	h2.grouped = true
	return &h2
}

// Flush is a no-op; every record is written synchronously.
func (h *Handler) Flush() {}

// Target returns the target set through WithAttrs, if any.
func (h *Handler) Target() (string, bool) { return h.target, h.hasTarget }

func (h *Handler) targetOf(r slog.Record) string {
	if !h.grouped {
		target, ok := "", false
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == TargetKey {
				target, ok = a.Value.Resolve().String(), true
				return false
			}
			return true
		})
		if ok {
			return target
		}
	}
	if h.hasTarget {
		return h.target
	}
	return callerPackage(r.PC)
}

func findTarget(attrs []slog.Attr) (string, bool) {
	for i := len(attrs) - 1; i >= 0; i-- {
		if attrs[i].Key == TargetKey {
			return attrs[i].Value.Resolve().String(), true
		}
	}
	return "", false
}

// callerPackage resolves pc to the import path of its package.
func callerPackage(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return packagePath(frame.Function)
}

// packagePath strips the function part of a qualified name such as
// "github.com/a/b/pkg.(*T).Method".
func packagePath(fn string) string {
	slash := strings.LastIndexByte(fn, '/')
	if i := strings.IndexByte(fn[slash+1:], '.'); i >= 0 {
		return fn[:slash+1+i]
	}
	return fn
}
