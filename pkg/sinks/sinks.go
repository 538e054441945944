package sinks

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/storeconnect-reports/internal/domain"
)

// Supported sink types.
const (
	TypeDir = "dir"
	TypeS3  = "s3"
)

// Sink stores a report payload and returns where it was written.
type Sink interface {
	Type() string
	Put(ctx context.Context, report domain.Report) (string, error)
}

// Config selects and configures a sink.
type Config struct {
	Type string
	Dir  string
	S3   S3Config
}

// New builds the sink named by cfg.Type.
func New(ctx context.Context, cfg Config) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", TypeDir:
		return NewDirSink(cfg.Dir)
	case TypeS3:
		return newS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported sink type %q", cfg.Type)
	}
}

// objectKey lays reports out as {prefix}/{kind}/{date}.tsv[.gz].
func objectKey(prefix string, report domain.Report) string {
	key := string(report.Kind) + "/" + report.FileName()
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		key = prefix + "/" + key
	}
	return key
}
