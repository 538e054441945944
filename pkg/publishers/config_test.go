package publishers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/storeconnect-reports/internal/domain"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: sns1
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123456789012:reports
      region: us-east-1
  - id: gcp
    type: pubsub
    pubsub:
      project_id: proj
      topic: reports
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "sns1" || enabled[1].ID != "gcp" {
		t.Fatalf("expected sns1 and gcp enabled, got %#v", enabled)
	}
	if enabled[1].PubSub.Topic != "reports" {
		t.Fatalf("unexpected pubsub config %#v", enabled[1].PubSub)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"q","type":"sqs","sqs":{"uri":"https://sqs/q","region":"us-east-1"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 1 || reg.All()[0].SQS.QueueURL != "https://sqs/q" {
		t.Fatalf("unexpected registry %#v", reg.All())
	}
}

func TestPublisherConfigValidate(t *testing.T) {
	cases := []PublisherConfig{
		{Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}},
		{ID: "t1"},
		{ID: "h1", Type: TypeHTTP},
		{ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{}},
		{ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "p"}},
		{ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{Region: "us-east-1"}},
	}
	for _, cfg := range cases {
		if err := cfg.validate(); err == nil {
			t.Fatalf("expected validation error for %#v", cfg)
		}
	}
}

func TestLoadRegistryNormalizesReportKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: HTTP
    reports: [" Sales_Summary "]
    http:
      url: https://example.com/hook
      method: put
      headers:
        X-Token: " abc "
        X-Empty: ""
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	cfg := reg.All()[0]
	if cfg.Type != TypeHTTP || len(cfg.Reports) != 1 || cfg.Reports[0] != string(domain.KindSalesSummary) {
		t.Fatalf("unexpected normalized config %#v", cfg)
	}
	if cfg.HTTP.Method != "PUT" || cfg.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("unexpected http defaults %#v", cfg.HTTP)
	}
	if len(cfg.HTTP.Headers) != 1 || cfg.HTTP.Headers["X-Token"] != "abc" {
		t.Fatalf("unexpected headers %#v", cfg.HTTP.Headers)
	}
	if !cfg.Accepts("sales_summary") || cfg.Accepts("subscription_events_summary") {
		t.Fatalf("Accepts does not honor reports filter")
	}
}

func TestLoadRegistryRejectsUnknownReportKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    reports: [financial_detail]
    http:
      url: https://example.com/hook
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadRegistry(path); err == nil || !strings.Contains(err.Error(), "financial_detail") {
		t.Fatalf("expected unsupported report kind error, got %v", err)
	}
}

func TestLoadRegistryRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    http: {url: https://a.example.com}
  - id: hook
    type: http
    http: {url: https://b.example.com}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestNewEventFromReport(t *testing.T) {
	fetched := time.Date(2026, 10, 2, 3, 4, 5, 0, time.UTC)
	evt := NewEvent(domain.Report{
		Kind:         domain.KindSalesSummary,
		Date:         "2026-10-01",
		VendorNumber: "85000000",
		Data:         []byte("abc"),
		FetchedAt:    fetched,
	}, "/data/reports/sales_summary/2026-10-01.tsv")

	if evt.Bytes != 3 || evt.ReportKind != "sales_summary" || !evt.FetchedAt.Equal(fetched) {
		t.Fatalf("unexpected event %#v", evt)
	}
}
