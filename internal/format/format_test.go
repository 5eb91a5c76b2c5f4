package format

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nao-Mk2/loggify/internal/model"
)

var at = time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)

func TestRenderPlain(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		sev     model.Severity
		msg     string
		want    string
	}{
		{"default pattern", "", model.SeverityError, "boom", "[05.03.2024 07:08:09] > Error > boom"},
		{"time only", "%H:%M:%S", model.SeverityWarn, "careful", "[07:08:09] > Warn  > careful"},
		{"info", "%Y-%m-%d", model.SeverityInfo, "hi", "[2024-03-05] > Info  > hi"},
		{"debug", "%M", model.SeverityDebug, "d", "[08] > Debug > d"},
		{"trace", "%S", model.SeverityTrace, "t", "[09] > Trace > t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.pattern, false)
			require.NoError(t, err)
			got := f.Render(model.Record{Severity: tt.sev, Message: tt.msg, Time: at})
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\033")
		})
	}
}

func TestRenderColor(t *testing.T) {
	f, err := New("%H:%M:%S", true)
	require.NoError(t, err)

	colors := map[model.Severity]string{
		model.SeverityError: "\033[1;31m",
		model.SeverityWarn:  "\033[1;33m",
		model.SeverityInfo:  "\033[1;36m",
		model.SeverityDebug: "\033[1;35m",
		model.SeverityTrace: "\033[1;34m",
	}
	for sev, color := range colors {
		msg := "message with spaces and 100%"
		got := f.Render(model.Record{Severity: sev, Message: msg, Time: at})
		assert.Contains(t, got, msg)
		assert.Contains(t, got, color+Label(sev)+reset)
		assert.Contains(t, got, grey+"07:08:09"+reset)
		assert.True(t, strings.HasPrefix(got, "["))
		assert.NotContains(t, got, "\n")
	}
}

func TestRenderUsesUTC(t *testing.T) {
	f, err := New("%H", false)
	require.NoError(t, err)
	local := at.In(time.FixedZone("plus3", 3*60*60))
	assert.Equal(t, "[07] > Info  > x", f.Render(model.Record{Severity: model.SeverityInfo, Message: "x", Time: local}))
}

func TestRenderKeepsMultilineMessageOnOneLine(t *testing.T) {
	for _, color := range []bool{false, true} {
		f, err := New("%H", color)
		require.NoError(t, err)
		got := f.Render(model.Record{Severity: model.SeverityWarn, Message: "a\nb\r\nc", Time: at})
		assert.NotContains(t, got, "\n")
		assert.NotContains(t, got, "\r")
		assert.Contains(t, got, `a\nb\r\nc`)
	}
}

func TestLabelsAreFiveWide(t *testing.T) {
	for s := model.SeverityError; s <= model.SeverityTrace; s++ {
		assert.Len(t, Label(s), 5)
	}
}

func TestFormatterAccessors(t *testing.T) {
	f, err := New("", true)
	require.NoError(t, err)
	assert.True(t, f.Color())
	assert.Equal(t, DefaultTimeFormat, f.Pattern())
}

func TestNewRejectsUnknownVerb(t *testing.T) {
	_, err := New("%Q", false)
	assert.Error(t, err)
}
