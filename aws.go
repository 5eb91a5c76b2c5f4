package loggify

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/Nao-Mk2/loggify/internal/client"
	"github.com/Nao-Mk2/loggify/internal/remote"
)

// AWS defaults.
const (
	DefaultRegion   = "eu-central-1"
	DefaultLogGroup = "loggify"
)

// AWSBuilder configures the CloudWatch Logs mirror. A fresh stream is
// created on every Build: its name is the current Unix time in milliseconds,
// or "<name>_<millis>" when WithLogStreamName is used.
type AWSBuilder struct {
	region  string
	profile string
	group   string
	stream  string
	api     remote.LogsAPI
	opts    []remote.Option
	now     func() time.Time
}

// AWS returns an AWSBuilder with the default region and log group.
func AWS() *AWSBuilder {
	a := &AWSBuilder{region: DefaultRegion, group: DefaultLogGroup, now: time.Now}
	a.stream = a.millis()
	return a
}

// WithRegion sets the AWS region.
func (a *AWSBuilder) WithRegion(region string) *AWSBuilder {
	a.region = region
	return a
}

// WithProfile selects a shared config profile. AWS_PROFILE is used otherwise.
func (a *AWSBuilder) WithProfile(profile string) *AWSBuilder {
	a.profile = profile
	return a
}

// WithLogGroupName sets the log group. The group must already exist.
func (a *AWSBuilder) WithLogGroupName(group string) *AWSBuilder {
	a.group = group
	return a
}

// WithLogStreamName sets the stream name to "<name>_<millis>".
func (a *AWSBuilder) WithLogStreamName(name string) *AWSBuilder {
	a.stream = name + "_" + a.millis()
	return a
}

// WithClient uses api instead of a client loaded from the AWS config.
func (a *AWSBuilder) WithClient(api remote.LogsAPI) *AWSBuilder {
	a.api = api
	return a
}

// WithMaxAttempts bounds retries on sequence token conflicts.
func (a *AWSBuilder) WithMaxAttempts(n int) *AWSBuilder {
	a.opts = append(a.opts, remote.WithMaxAttempts(n))
	return a
}

// WithLegacyTokenRefresh fetches the sequence token before every append
// instead of caching it. Concurrent writers then race for the same token.
func (a *AWSBuilder) WithLegacyTokenRefresh() *AWSBuilder {
	a.opts = append(a.opts, remote.WithLegacyTokenRefresh())
	return a
}

// LogGroupName returns the configured log group.
func (a *AWSBuilder) LogGroupName() string { return a.group }

// LogStreamName returns the stream name that Build will create.
func (a *AWSBuilder) LogStreamName() string { return a.stream }

func (a *AWSBuilder) millis() string {
	now := a.now
	if now == nil {
		now = time.Now
	}
	return strconv.FormatInt(now().UnixMilli(), 10)
}

func (a *AWSBuilder) build(ctx context.Context) (*remote.Sink, error) {
	api := a.api
	if api == nil {
		c, err := client.NewCloudWatchClient(ctx, client.AuthOptions{Region: a.region, Profile: a.profile})
		if err != nil {
			return nil, &ProvisionError{Group: a.group, Stream: a.stream, Err: errors.Wrap(err, "load aws config")}
		}
		api = c
	}
	s := remote.New(api, a.group, a.stream, a.opts...)
	if err := s.Create(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
