// Package awsutil loads AWS configuration shared by the S3 sink and the SQS/SNS publishers.
package awsutil

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Settings selects region, endpoint and optional static credentials.
type Settings struct {
	Region          string
	Endpoint        string // e.g. http://localstack:4566; falls back to AWS_ENDPOINT_URL
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Load builds an aws.Config. Static credentials win over the default chain when both keys are set.
func Load(ctx context.Context, s Settings) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{}
	if r := strings.TrimSpace(s.Region); r != "" {
		opts = append(opts, awscfg.WithRegion(r))
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	if ep := Endpoint(s); ep != "" {
		cfg.BaseEndpoint = aws.String(ep)
	}
	return cfg, nil
}

// Endpoint returns the custom endpoint in effect, if any.
func Endpoint(s Settings) string {
	if ep := strings.TrimSpace(s.Endpoint); ep != "" {
		return ep
	}
	return strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL"))
}
