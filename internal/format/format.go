// Package format renders records as single console lines.
package format

import (
	"fmt"
	"strings"

	"github.com/lestrrat-go/strftime"

	"github.com/Nao-Mk2/loggify/internal/model"
)

// DefaultTimeFormat renders as 31.12.2024 23:59:59.
const DefaultTimeFormat = "%d.%m.%Y %H:%M:%S"

const (
	reset     = "\033[0m"
	grey      = "\033[90m"
	boldWhite = "\033[1;37m"
)

type style struct {
	label string
	color string
}

// indexed by model.Severity
var styles = [...]style{
	model.SeverityError: {"Error", "\033[1;31m"},
	model.SeverityWarn:  {"Warn ", "\033[1;33m"},
	model.SeverityInfo:  {"Info ", "\033[1;36m"},
	model.SeverityDebug: {"Debug", "\033[1;35m"},
	model.SeverityTrace: {"Trace", "\033[1;34m"},
}

// Label returns the fixed-width label of sev.
func Label(sev model.Severity) string {
	if !sev.Valid() {
		return "?????"
	}
	return styles[sev].label
}

// Formatter turns a record into "[<time>] > <label> > <message>".
type Formatter struct {
	ts    *strftime.Strftime
	color bool
}

// New compiles pattern. An empty pattern selects DefaultTimeFormat.
func New(pattern string, color bool) (*Formatter, error) {
	if pattern == "" {
		pattern = DefaultTimeFormat
	}
	ts, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid time format %q: %w", pattern, err)
	}
	return &Formatter{ts: ts, color: color}, nil
}

// Color reports whether escape sequences are emitted.
func (f *Formatter) Color() bool { return f.color }

// Pattern returns the compiled time pattern.
func (f *Formatter) Pattern() string { return f.ts.Pattern() }

// lineBreaks keeps a multi-line message on one console line.
var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// Render returns the line for r without a trailing newline. Line breaks in
// the message are written as the two-character escapes \n and \r.
func (f *Formatter) Render(r model.Record) string {
	ts := f.ts.FormatString(r.Time.UTC())
	msg := lineBreaks.Replace(r.Message)
	var b strings.Builder
	b.Grow(len(ts) + len(msg) + 40)
	b.WriteByte('[')
	if f.color {
		b.WriteString(grey + ts + reset)
	} else {
		b.WriteString(ts)
	}
	b.WriteString("] > ")
	if f.color && r.Severity.Valid() {
		b.WriteString(styles[r.Severity].color + Label(r.Severity) + reset)
	} else {
		b.WriteString(Label(r.Severity))
	}
	b.WriteString(" > ")
	if f.color {
		b.WriteString(boldWhite + msg + reset)
	} else {
		b.WriteString(msg)
	}
	return b.String()
}
