package sinks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/samvad-hq/storeconnect-reports/internal/domain"
)

func sampleReport(compressed bool) domain.Report {
	return domain.Report{
		Kind:         domain.KindSalesSummary,
		Date:         "2026-10-01",
		VendorNumber: "85000000",
		Compressed:   compressed,
		Data:         []byte("Provider\tSKU\n"),
	}
}

func TestDirSinkWritesReport(t *testing.T) {
	root := t.TempDir()
	sink, err := NewDirSink(root)
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	loc, err := sink.Put(context.Background(), sampleReport(false))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	want := filepath.Join(root, "sales_summary", "2026-10-01.tsv")
	if loc != want {
		t.Fatalf("location = %s, want %s", loc, want)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if string(data) != "Provider\tSKU\n" {
		t.Fatalf("unexpected contents %q", data)
	}
}

func TestNewRejectsUnknownSink(t *testing.T) {
	if _, err := New(context.Background(), Config{Type: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown sink type")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkPutObject(t *testing.T) {
	client := &fakeS3{}
	sink := &s3Sink{bucket: "reports", prefix: "/appstore/", client: client}

	loc, err := sink.Put(context.Background(), sampleReport(true))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if loc != "s3://reports/appstore/sales_summary/2026-10-01.tsv.gz" {
		t.Fatalf("location = %s", loc)
	}
	if got := aws.ToString(client.input.Key); got != "appstore/sales_summary/2026-10-01.tsv.gz" {
		t.Fatalf("Key = %s", got)
	}
	if got := aws.ToString(client.input.ContentType); got != "application/gzip" {
		t.Fatalf("ContentType = %s", got)
	}
	if client.input.Metadata["report-kind"] != "sales_summary" {
		t.Fatalf("metadata = %#v", client.input.Metadata)
	}
}

func TestS3SinkPutError(t *testing.T) {
	sink := &s3Sink{bucket: "reports", client: &fakeS3{err: errors.New("denied")}}
	if _, err := sink.Put(context.Background(), sampleReport(false)); err == nil {
		t.Fatalf("expected error from PutObject failure")
	}
}
