package client

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// AuthOptions selects the region and credentials for the CloudWatch client.
type AuthOptions struct {
	Region  string
	Profile string
}

// NewCloudWatchOptions turns AuthOptions plus the environment into config
// load options. Precedence for credentials: explicit profile, AWS_PROFILE,
// static AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, then the default chain.
func NewCloudWatchOptions(o AuthOptions) []func(*config.LoadOptions) error {
	var cfgOpts []func(*config.LoadOptions) error
	if o.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(o.Region))
	}
	if profile := ResolveProfile(o.Profile); profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
		return cfgOpts
	}
	key, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if key != "" && secret != "" {
		provider := credentials.NewStaticCredentialsProvider(key, secret, os.Getenv("AWS_SESSION_TOKEN"))
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(provider))
	}
	return cfgOpts
}

// ResolveProfile returns the profile from the option or AWS_PROFILE, or empty.
func ResolveProfile(profile string) string {
	if profile != "" {
		return profile
	}
	return os.Getenv("AWS_PROFILE")
}

// NewCloudWatchClient loads AWS configuration and returns a CloudWatch Logs
// client.
func NewCloudWatchClient(ctx context.Context, o AuthOptions) (*cloudwatchlogs.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, NewCloudWatchOptions(o)...)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}
