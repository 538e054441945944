package sinks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samvad-hq/storeconnect-reports/internal/domain"
	"github.com/samvad-hq/storeconnect-reports/pkg/awsutil"
)

// S3Config holds the bucket layout and AWS settings for the S3 sink.
type S3Config struct {
	Bucket string
	Prefix string
	AWS    awsutil.Settings
}

// s3API is the subset of the S3 client the sink uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Sink struct {
	bucket string
	prefix string
	client s3API
}

func newS3Sink(ctx context.Context, cfg S3Config) (Sink, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 sink requires a bucket")
	}

	awsCfg, err := awsutil.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	pathStyle := awsutil.Endpoint(cfg.AWS) != ""

	return &s3Sink{
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = pathStyle }),
	}, nil
}

func (s *s3Sink) Type() string { return TypeS3 }

func (s *s3Sink) Put(ctx context.Context, report domain.Report) (string, error) {
	key := objectKey(s.prefix, report)
	contentType := "text/tab-separated-values"
	if report.Compressed {
		contentType = "application/gzip"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(report.Data),
		ContentType:          aws.String(contentType),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
		Metadata: map[string]string{
			"report-kind":   string(report.Kind),
			"report-date":   report.Date,
			"vendor-number": report.VendorNumber,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
