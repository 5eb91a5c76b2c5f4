package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Nao-Mk2/loggify"
	"github.com/Nao-Mk2/loggify/cmd"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: loggify-demo [--level info] [--exclude a,b] [--time-format %H:%M:%S] [--no-color] [--log-target] [--aws [--group g] [--stream s] [--region r]]")
	fmt.Fprintln(os.Stderr, "Environment: LOGGIFY_LEVEL, LOGGIFY_EXCLUDE, LOGGIFY_TIME_FORMAT, NO_COLOR, LOGGIFY_LOG_GROUP, LOGGIFY_LOG_STREAM; AWS credentials from default sources.")
	os.Exit(2)
}

func main() {
	opts := cmd.CollectOptions()
	if msg, code := opts.Validate(); code != 0 {
		fmt.Fprintln(os.Stderr, msg)
		usage()
	}

	ctx := context.Background()
	if err := opts.Builder().Build(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	slog.Error("My error message")
	slog.Warn("My warn message")
	slog.Info("My info message")
	slog.Debug("My debug message")
	loggify.Trace("My trace message")

	loggify.Named("example::excluded").Info("I am logged unless example::excluded is excluded")
	loggify.Named("example::included").Info("I will be logged")
}
