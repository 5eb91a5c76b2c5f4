package loggify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *fakeMirror) PutLog(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return m.err
}

func newTestHandler(t *testing.T, b *Builder) (*Handler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h, err := b.WithOutput(&buf).WithoutColor().WithTimeFormat("%H:%M:%S").Handler(context.Background())
	require.NoError(t, err)
	return h, &buf
}

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimSuffix(buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

var at = time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)

var lineRE = regexp.MustCompile(`^\[\d\d:\d\d:\d\d\] > (Error|Warn |Info |Debug|Trace) > (.*)$`)

func TestHandlerDefaultLevelIsInfo(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder())
	l := slog.New(h)

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	l.Error("My error message")
	l.Warn("My warn message")
	l.Info("My info message")
	l.Debug("Will not be shown")
	l.Log(context.Background(), SlogLevelTrace, "Will not be shown")

	got := lines(buf)
	require.Len(t, got, 3)
	for i, want := range []string{"Error > My error message", "Warn  > My warn message", "Info  > My info message"} {
		assert.True(t, strings.HasSuffix(got[i], "] > "+want), got[i])
		assert.Regexp(t, lineRE, got[i])
	}
	assert.NotContains(t, buf.String(), "\033")
}

func TestHandlerTraceLevel(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder().WithLevel(LevelTrace))
	slog.New(h).Log(context.Background(), SlogLevelTrace, "deep")
	got := lines(buf)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "> Trace > deep")
}

func TestHandlerExcludesTargets(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder().WithLevel(LevelTrace).AddExclude("example::excluded"))
	l := slog.New(h)

	excluded := l.With(Target("example::excluded::inner"))
	included := l.With(Target("example::included"))
	assert.False(t, excluded.Enabled(context.Background(), slog.LevelError))
	assert.True(t, included.Enabled(context.Background(), slog.LevelError))

	excluded.Info("I will not be logged")
	included.Info("I will be logged")
	l.Info("per-record target", TargetKey, "example::excluded")
	included.Info("record target wins", TargetKey, "example::excluded::x")

	got := lines(buf)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "I will be logged")
}

func TestHandlerGroupedTargetIsOrdinaryAttr(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder().AddExclude("x"))
	l := slog.New(h)

	grouped := l.WithGroup("req").With(TargetKey, "x")
	_, ok := grouped.Handler().(*Handler).Target()
	assert.False(t, ok)
	assert.True(t, grouped.Enabled(context.Background(), slog.LevelInfo))

	grouped.Info("kept")
	l.WithGroup("req").Info("kept too", TargetKey, "x")
	l.With(Target("svc")).WithGroup("req").Info("outer target", TargetKey, "x")

	got := lines(buf)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "> kept")
	assert.Contains(t, got[1], "> kept too")
	assert.Contains(t, got[2], "> outer target")
}

func TestHandlerTargetFallsBackToCallerPackage(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder().AddExclude("Nao-Mk2/loggify"))
	slog.New(h).Info("from this package")
	assert.Empty(t, buf.String())

	h, buf = newTestHandler(t, NewBuilder().AddExclude("some/other/pkg"))
	slog.New(h).Info("from this package")
	assert.Len(t, lines(buf), 1)
}

func TestHandlerIgnoresOtherAttrs(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder())
	slog.New(h).WithGroup("g").With("k", "v").Info("only text", "n", 1)
	got := lines(buf)
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], "> only text"), got[0])
}

func TestHandlerMirrorsMessageOnly(t *testing.T) {
	m := &fakeMirror{}
	h, buf := newTestHandler(t, NewBuilder())
	h.mirror = m

	l := slog.New(h)
	l.Warn("mirrored", "k", "v")
	l.Debug("filtered out")

	assert.Equal(t, []string{"mirrored"}, m.messages)
	assert.Len(t, lines(buf), 1)
}

func TestHandlerMultilineMessageIsOneConsoleLine(t *testing.T) {
	m := &fakeMirror{}
	h, buf := newTestHandler(t, NewBuilder())
	h.mirror = m

	slog.New(h).Info("first\nsecond")
	got := lines(buf)
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], `> first\nsecond`), got[0])
	assert.Equal(t, []string{"first\nsecond"}, m.messages)
}

func TestHandlerRemoteFailureKeepsConsoleLine(t *testing.T) {
	var reported []error
	m := &fakeMirror{err: errors.New("token conflict")}
	h, buf := newTestHandler(t, NewBuilder().OnRemoteError(func(err error) { reported = append(reported, err) }))
	h.mirror = m

	require.NoError(t, h.Handle(context.Background(), slog.NewRecord(at, slog.LevelError, "still printed", 0)))
	assert.Contains(t, buf.String(), "still printed")
	require.Len(t, reported, 1)
	assert.EqualError(t, reported[0], "token conflict")
}

func TestHandlerDefaultRemoteReportGoesToDiagnostics(t *testing.T) {
	var diag bytes.Buffer
	h, buf := newTestHandler(t, NewBuilder().WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))))
	h.mirror = &fakeMirror{err: errors.New("offline")}

	slog.New(h).Info("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, diag.String(), "remote log append failed")
	assert.Contains(t, diag.String(), "offline")
}

func TestHandlerTargetDebug(t *testing.T) {
	var diag bytes.Buffer
	h, buf := newTestHandler(t, NewBuilder().WithTargetDebug(true).WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))))
	slog.New(h).With(Target("svc::db")).Info("query")
	assert.Contains(t, diag.String(), "target=svc::db")
	assert.Contains(t, buf.String(), "query")
	assert.NotContains(t, buf.String(), "svc::db")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestHandlerReturnsOutputErrors(t *testing.T) {
	m := &fakeMirror{}
	h, err := NewBuilder().WithOutput(failingWriter{}).Handler(context.Background())
	require.NoError(t, err)
	h.mirror = m
	err = h.Handle(context.Background(), slog.NewRecord(at, slog.LevelInfo, "x", 0))
	assert.EqualError(t, err, "closed")
	assert.Equal(t, []string{"x"}, m.messages)
}

func TestHandlerConcurrentLinesDoNotInterleave(t *testing.T) {
	h, buf := newTestHandler(t, NewBuilder())
	l := slog.New(h)

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l.Info(fmt.Sprintf("message %02d %s", i, strings.Repeat("x", 200)))
		}(i)
	}
	wg.Wait()

	got := lines(buf)
	require.Len(t, got, n)
	for _, line := range got {
		assert.Regexp(t, lineRE, line)
	}
}

func TestHandlerColor(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewBuilder().WithOutput(&buf).Handler(context.Background())
	require.NoError(t, err)
	slog.New(h).Error("colored text")
	assert.Contains(t, buf.String(), "\033[1;31mError\033[0m")
	assert.Contains(t, buf.String(), "colored text")
}

func TestHandlerFlushAndTarget(t *testing.T) {
	h, _ := newTestHandler(t, NewBuilder())
	h.Flush()
	_, ok := h.Target()
	assert.False(t, ok)

	h2 := h.WithAttrs([]slog.Attr{slog.String("a", "b"), Target("x"), Target("y")}).(*Handler)
	target, ok := h2.Target()
	assert.True(t, ok)
	assert.Equal(t, "y", target)
	assert.Same(t, h, h.WithAttrs([]slog.Attr{slog.Int("n", 1)}))
}

func TestPackagePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"github.com/a/b/pkg.(*T).Method", "github.com/a/b/pkg"},
		{"github.com/a/b/pkg.Func.func1", "github.com/a/b/pkg"},
		{"main.main", "main"},
		{"noDot", "noDot"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, packagePath(tt.in), tt.in)
	}
	assert.Equal(t, "", callerPackage(0))
}
