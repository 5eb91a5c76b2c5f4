// Package filter decides which records reach the console.
package filter

import (
	"log/slog"
	"strings"

	"github.com/Nao-Mk2/loggify/internal/model"
)

// Policy is an immutable severity threshold plus a target exclusion list.
type Policy struct {
	min         model.Severity
	exclude     []string
	debugTarget bool
	diag        *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithExclude adds target substrings that suppress matching records.
func WithExclude(names ...string) Option {
	return func(p *Policy) {
		for _, n := range names {
			if n != "" {
				p.exclude = append(p.exclude, n)
			}
		}
	}
}

// WithTargetDebug writes every evaluated target to diag. Useful to find out
// what to exclude.
func WithTargetDebug(diag *slog.Logger) Option {
	return func(p *Policy) {
		p.debugTarget = diag != nil
		p.diag = diag
	}
}

// New creates a Policy with minimum severity min.
func New(min model.Severity, opts ...Option) *Policy {
	p := &Policy{min: min}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Min returns the configured minimum severity.
func (p *Policy) Min() model.Severity { return p.min }

// Exclude returns a copy of the exclusion list.
func (p *Policy) Exclude() []string {
	return append([]string(nil), p.exclude...)
}

// SeverityEnabled is the target-less half of Enabled.
func (p *Policy) SeverityEnabled(sev model.Severity) bool {
	return sev.Passes(p.min)
}

// Enabled reports whether r should be emitted.
func (p *Policy) Enabled(r model.Record) bool {
	if p.debugTarget {
		p.diag.Info("log target", "target", r.Target)
	}
	return p.SeverityEnabled(r.Severity) && !p.Excluded(r.Target)
}

// Excluded reports whether any exclusion string is contained in target.
func (p *Policy) Excluded(target string) bool {
	for _, e := range p.exclude {
		if strings.Contains(target, e) {
			return true
		}
	}
	return false
}
