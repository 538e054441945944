package storeconnect

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samvad-hq/storeconnect-reports/pkg/httpclient"
)

const (
	// DefaultBaseURL is the App Store Connect API host.
	DefaultBaseURL = "https://api.appstoreconnect.apple.com"
	// SalesReportsEndpoint is the only endpoint this client calls.
	SalesReportsEndpoint = "/v1/salesReports"
)

// ReportRequest carries the filter values of one sales report download.
// Values are passed through verbatim; the API validates them.
type ReportRequest struct {
	VendorNumber  string // empty uses the client's vendor number
	Frequency     string
	ReportDate    string // YYYY-MM-DD, within the last year
	ReportType    string
	ReportSubType string
	Version       string
	// Compressed returns the gzip body untouched when true and the
	// decompressed payload when false.
	Compressed bool
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

// ReportClient downloads sales and trends reports.
type ReportClient struct {
	vendorNumber string
	baseURL      string
	issuer       *TokenIssuer
	http         httpclient.Client
	log          Logger
}

// ClientOption customizes a ReportClient.
type ClientOption func(*ReportClient)

// WithHTTPClient swaps the transport.
func WithHTTPClient(c httpclient.Client) ClientOption {
	return func(rc *ReportClient) {
		if c != nil {
			rc.http = c
		}
	}
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) ClientOption {
	return func(rc *ReportClient) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			rc.baseURL = u
		}
	}
}

// WithLogger injects a logger; the default discards output.
func WithLogger(l Logger) ClientOption {
	return func(rc *ReportClient) {
		if l != nil {
			rc.log = l
		}
	}
}

// NewReportClient builds a client for vendorNumber that signs with issuer.
func NewReportClient(vendorNumber string, issuer *TokenIssuer, opts ...ClientOption) (*ReportClient, error) {
	vendorNumber = strings.TrimSpace(vendorNumber)
	if vendorNumber == "" {
		return nil, fmt.Errorf("vendor number is required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	rc := &ReportClient{
		vendorNumber: vendorNumber,
		baseURL:      DefaultBaseURL,
		issuer:       issuer,
		http:         httpclient.NewRestyClient(0),
		log:          noopLogger{},
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc, nil
}

// VendorNumber returns the vendor the client fetches reports for.
func (c *ReportClient) VendorNumber() string { return c.vendorNumber }

// BuildQuery assembles the filter query string. The order is fixed because
// the same string is embedded in the token scope.
func (c *ReportClient) BuildQuery(req ReportRequest) string {
	vendor := req.VendorNumber
	if vendor == "" {
		vendor = c.vendorNumber
	}
	return "filter[vendorNumber]=" + vendor +
		"&filter[frequency]=" + req.Frequency +
		"&filter[reportDate]=" + req.ReportDate +
		"&filter[reportType]=" + req.ReportType +
		"&filter[reportSubType]=" + req.ReportSubType +
		"&filter[version]=" + req.Version
}

// FetchReport downloads one report. Non-200 responses yield a
// *RequestFailedError and are never decompressed.
func (c *ReportClient) FetchReport(ctx context.Context, req ReportRequest) ([]byte, error) {
	query := c.BuildQuery(req)

	token, err := c.issuer.Issue(SalesReportsEndpoint, query)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + SalesReportsEndpoint + "?" + query
	resp, err := c.http.Get(ctx, url, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", SalesReportsEndpoint, err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.log.DebugObj("sales report request failed", "request_content", map[string]any{
			"status_code": resp.StatusCode(),
			"url":         url,
			"body":        string(resp.Body()),
		})
		return nil, &RequestFailedError{
			StatusCode: resp.StatusCode(),
			URL:        url,
			Body:       resp.Body(),
		}
	}

	if req.Compressed {
		return resp.Body(), nil
	}
	return gunzip(resp.Body())
}

func gunzip(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return []byte{}, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecompressionError{Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecompressionError{Err: err}
	}
	return out, nil
}

// FetchSalesSummary downloads the daily sales summary (version 1_1).
func (c *ReportClient) FetchSalesSummary(ctx context.Context, reportDate string, compressed bool) ([]byte, error) {
	return c.FetchReport(ctx, ReportRequest{
		Frequency:     FrequencyDaily,
		ReportDate:    reportDate,
		ReportType:    ReportTypeSales,
		ReportSubType: ReportSubTypeSummary,
		Version:       "1_1",
		Compressed:    compressed,
	})
}

// FetchSubscriptionEventsSummary downloads the daily subscription event summary (version 1_3).
func (c *ReportClient) FetchSubscriptionEventsSummary(ctx context.Context, reportDate string, compressed bool) ([]byte, error) {
	return c.FetchReport(ctx, ReportRequest{
		Frequency:     FrequencyDaily,
		ReportDate:    reportDate,
		ReportType:    ReportTypeSubscriptionEvent,
		ReportSubType: ReportSubTypeSummary,
		Version:       "1_3",
		Compressed:    compressed,
	})
}

// Filter values used by the convenience helpers.
const (
	FrequencyDaily              = "DAILY"
	ReportTypeSales             = "SALES"
	ReportTypeSubscriptionEvent = "SUBSCRIPTION_EVENT"
	ReportSubTypeSummary        = "SUMMARY"
)
