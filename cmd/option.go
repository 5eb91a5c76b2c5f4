package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Nao-Mk2/loggify"
	"github.com/Nao-Mk2/loggify/internal/util"
)

// Options holds CLI options after parsing flags and env defaults.
type Options struct {
	Level       string
	ExcludeCSV  string
	TimeFormat  string
	NoColor     bool
	LogTarget   bool
	AWS         bool
	Region      string
	Profile     string
	LogGroup    string
	LogStream   string
	LegacyToken bool
}

// Validate checks relationships between flags.
// Returns an error message and exit code, or ("", 0).
func (o *Options) Validate() (string, int) {
	if _, err := loggify.ParseLevel(o.Level); err != nil {
		return fmt.Sprintf("error: --level: %v", err), 2
	}
	if !o.AWS && (o.LogGroup != "" || o.LogStream != "" || o.LegacyToken) {
		return "error: --group, --stream and --legacy-token require --aws", 2
	}
	if strings.TrimSpace(o.TimeFormat) == "" {
		return "error: --time-format must not be empty", 2
	}
	return "", 0
}

// Builder turns validated options into a loggify.Builder.
func (o *Options) Builder() *loggify.Builder {
	level, _ := loggify.ParseLevel(o.Level)
	b := loggify.NewBuilder().
		WithLevel(level).
		WithTimeFormat(o.TimeFormat).
		WithTargetDebug(o.LogTarget)
	for _, e := range util.SplitCSV(o.ExcludeCSV) {
		b.AddExclude(e)
	}
	if o.NoColor {
		b.WithoutColor()
	}
	if o.AWS {
		a := loggify.AWS().WithRegion(o.Region).WithProfile(o.Profile)
		if o.LogGroup != "" {
			a.WithLogGroupName(o.LogGroup)
		}
		if o.LogStream != "" {
			a.WithLogStreamName(o.LogStream)
		}
		if o.LegacyToken {
			a.WithLegacyTokenRefresh()
		}
		b.WithAWS(a)
	}
	return b
}

// CollectOptions parses flags with environment-backed defaults and returns Options.
func CollectOptions() *Options {
	var o Options

	level := os.Getenv(loggify.EnvLevel)
	if level == "" {
		level = "info"
	}
	timeFormat := os.Getenv(loggify.EnvTimeFormat)
	if timeFormat == "" {
		timeFormat = loggify.DefaultTimeFormat
	}
	region := os.Getenv(loggify.EnvRegion)
	if region == "" {
		region = loggify.DefaultRegion
	}

	flag.StringVar(&o.Level, "level", level, "Minimum severity: error, warn, info, debug or trace")
	flag.StringVar(&o.ExcludeCSV, "exclude", os.Getenv(loggify.EnvExclude), "Comma-separated target substrings to suppress")
	flag.StringVar(&o.TimeFormat, "time-format", timeFormat, "strftime pattern of the timestamp")
	flag.BoolVar(&o.NoColor, "no-color", os.Getenv(loggify.EnvNoColor) != "", "Disable colored output")
	flag.BoolVar(&o.LogTarget, "log-target", false, "Print each record's target to stderr")
	flag.BoolVar(&o.AWS, "aws", false, "Mirror messages to CloudWatch Logs")
	flag.StringVar(&o.Region, "region", region, "AWS region")
	flag.StringVar(&o.Profile, "profile", "", "AWS shared config profile (or set AWS_PROFILE)")
	flag.StringVar(&o.LogGroup, "group", os.Getenv(loggify.EnvLogGroup), "CloudWatch log group (default loggify)")
	flag.StringVar(&o.LogStream, "stream", os.Getenv(loggify.EnvLogStream), "CloudWatch log stream name prefix")
	flag.BoolVar(&o.LegacyToken, "legacy-token", false, "Fetch the sequence token before every append")
	flag.Parse()

	return &o
}
