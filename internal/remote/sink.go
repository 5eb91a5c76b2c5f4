// Package remote mirrors log messages to a CloudWatch Logs stream.
//
// CloudWatch orders appends to a stream with an upload sequence token: every
// PutLogEvents call must carry the token returned by the previous one, and a
// stale token is rejected with InvalidSequenceTokenException. Sink serializes
// its appends and caches the token from each response, so a single process
// never races itself. It describes the stream only on first use and after a
// conflict with some other writer.
//
// WithLegacyTokenRefresh restores the describe-before-every-append protocol
// without caching. In that mode two concurrent PutLog calls can read the same
// token and one of the appends is rejected; the mutex still serializes calls
// from this Sink, so the race only shows up against other writers.
package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	"github.com/pkg/errors"

	"github.com/Nao-Mk2/loggify/internal/util"
)

// DefaultMaxAttempts bounds PutLog retries on sequence token conflicts.
const DefaultMaxAttempts = 3

// ErrStreamNotFound is returned when DescribeLogStreams does not list the
// configured stream.
var ErrStreamNotFound = errors.New("log stream not found")

// LogsAPI is the subset of CloudWatch Logs API we use.
type LogsAPI interface {
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	DescribeLogStreams(ctx context.Context, params *cloudwatchlogs.DescribeLogStreamsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// ProvisionError reports a failed CreateLogStream.
type ProvisionError struct {
	Group  string
	Stream string
	Err    error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("create log stream %s/%s: %v", e.Group, e.Stream, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Code returns the AWS error code, if the failure came from the service.
func (e *ProvisionError) Code() string { return errorCode(e.Err) }

// AppendError reports a PutLog call that could not deliver its event.
type AppendError struct {
	Group    string
	Stream   string
	Attempts int
	Err      error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append to %s/%s after %d attempt(s): %v", e.Group, e.Stream, e.Attempts, e.Err)
}

func (e *AppendError) Unwrap() error { return e.Err }

// Code returns the AWS error code, if the failure came from the service.
func (e *AppendError) Code() string { return errorCode(e.Err) }

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock replaces the wall clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// WithMaxAttempts bounds the number of PutLogEvents calls per PutLog.
// Values below 1 are treated as 1.
func WithMaxAttempts(n int) Option {
	return func(s *Sink) {
		if n < 1 {
			n = 1
		}
		s.maxAttempts = n
	}
}

// WithBackoff replaces the delay between conflicting attempts.
func WithBackoff(b retry.BackoffDelayer) Option {
	return func(s *Sink) { s.backoff = b }
}

// WithLegacyTokenRefresh describes the stream before every append and never
// reuses a returned token. Conflicts are not retried.
func WithLegacyTokenRefresh() Option {
	return func(s *Sink) { s.legacy = true }
}

// Sink appends messages to one log stream.
type Sink struct {
	client      LogsAPI
	group       string
	stream      string
	now         func() time.Time
	maxAttempts int
	backoff     retry.BackoffDelayer
	legacy      bool

	mu    sync.Mutex
	token *string
	known bool
}

// New creates a Sink for group/stream. It does not contact the service.
func New(client LogsAPI, group, stream string, opts ...Option) *Sink {
	s := &Sink{
		client:      client,
		group:       group,
		stream:      stream,
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		backoff:     retry.NewExponentialJitterBackoff(time.Second),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Group returns the log group name.
func (s *Sink) Group() string { return s.group }

// Stream returns the log stream name.
func (s *Sink) Stream() string { return s.stream }

// Token returns the cached upload sequence token.
func (s *Sink) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return aws.ToString(s.token), s.token != nil
}

// Create provisions the log stream.
func (s *Sink) Create(ctx context.Context) error {
	_, err := s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(s.group),
		LogStreamName: aws.String(s.stream),
	})
	if err != nil {
		return &ProvisionError{Group: s.group, Stream: s.stream, Err: errors.WithStack(err)}
	}
	s.mu.Lock()
	// A stream we just created has never been written to.
	s.token, s.known = nil, true
	s.mu.Unlock()
	return nil
}

// PutLog appends message stamped with the current time in milliseconds.
func (s *Sink) PutLog(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(s.now().UnixMilli()),
	}

	var lastErr error
	attempt := 0
	for attempt < s.maxAttempts {
		attempt++
		if s.legacy || !s.known {
			tok, err := s.describe(ctx)
			if err != nil {
				return s.appendError(attempt, errors.Wrap(err, "describe log streams"))
			}
			s.token, s.known = tok, true
		}

		out, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(s.group),
			LogStreamName: aws.String(s.stream),
			LogEvents:     []types.InputLogEvent{event},
			SequenceToken: s.token,
		})
		if err == nil {
			s.token = out.NextSequenceToken
			return nil
		}

		var accepted *types.DataAlreadyAcceptedException
		if errors.As(err, &accepted) {
			s.adopt(accepted.ExpectedSequenceToken)
			return nil
		}
		var invalid *types.InvalidSequenceTokenException
		if !errors.As(err, &invalid) || s.legacy {
			s.known = false
			return s.appendError(attempt, errors.Wrap(err, "put log events"))
		}

		lastErr = err
		s.adopt(invalid.ExpectedSequenceToken)
		if attempt == s.maxAttempts {
			break
		}
		delay, derr := s.backoff.BackoffDelay(attempt, err)
		if derr != nil {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return s.appendError(attempt, err)
		}
	}
	return s.appendError(attempt, errors.Wrap(lastErr, "sequence token conflict"))
}

// adopt takes the token the service expects next. Without one the next
// attempt describes the stream.
func (s *Sink) adopt(tok *string) {
	if tok != nil {
		s.token, s.known = tok, true
		return
	}
	s.token, s.known = nil, false
}

func (s *Sink) appendError(attempts int, err error) error {
	return &AppendError{Group: s.group, Stream: s.stream, Attempts: attempts, Err: err}
}

// describe pages through the group's streams until it finds ours.
func (s *Sink) describe(ctx context.Context) (*string, error) {
	var next *string
	for {
		out, err := s.client.DescribeLogStreams(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
			LogGroupName:        aws.String(s.group),
			LogStreamNamePrefix: aws.String(s.stream),
			NextToken:           next,
		})
		if err != nil {
			return nil, err
		}
		tok, found, err := util.StreamToken(out.LogStreams, s.stream)
		if err != nil {
			return nil, err
		}
		if found {
			return tok, nil
		}
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			break
		}
		next = out.NextToken
	}
	return nil, ErrStreamNotFound
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
