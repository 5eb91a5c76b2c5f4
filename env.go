package loggify

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Nao-Mk2/loggify/internal/util"
)

// Environment variables read by FromEnv.
const (
	EnvLevel      = "LOGGIFY_LEVEL"
	EnvExclude    = "LOGGIFY_EXCLUDE"
	EnvTimeFormat = "LOGGIFY_TIME_FORMAT"
	EnvLogTarget  = "LOGGIFY_LOG_TARGET"
	EnvNoColor    = "NO_COLOR"
	EnvLogGroup   = "LOGGIFY_LOG_GROUP"
	EnvLogStream  = "LOGGIFY_LOG_STREAM"
	EnvRegion     = "AWS_REGION"
)

// FromEnv overlays settings from the environment onto b. Unset variables
// leave the current value alone; LOGGIFY_EXCLUDE is a comma-separated list
// added to the exclusions. A malformed value is reported by Build.
func (b *Builder) FromEnv() *Builder {
	if v := os.Getenv(EnvLevel); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			b.err = fmt.Errorf("%s: %w", EnvLevel, err)
		} else {
			b.level = level
		}
	}
	for _, e := range util.SplitCSV(os.Getenv(EnvExclude)) {
		b.AddExclude(e)
	}
	if v := os.Getenv(EnvTimeFormat); v != "" {
		b.timeFormat = v
	}
	if v := os.Getenv(EnvLogTarget); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			b.err = fmt.Errorf("%s: %w", EnvLogTarget, err)
		} else {
			b.targetDebug = on
		}
	}
	if os.Getenv(EnvNoColor) != "" {
		b.color = false
	}
	return b
}

// FromEnv overlays AWS_REGION, LOGGIFY_LOG_GROUP and LOGGIFY_LOG_STREAM.
func (a *AWSBuilder) FromEnv() *AWSBuilder {
	if v := os.Getenv(EnvRegion); v != "" {
		a.region = v
	}
	if v := os.Getenv(EnvLogGroup); v != "" {
		a.group = v
	}
	if v := os.Getenv(EnvLogStream); v != "" {
		a.WithLogStreamName(v)
	}
	return a
}
