package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReportDateLayout is the ISO date format the reports API expects.
const ReportDateLayout = "2006-01-02"

// Supported report kinds.
const (
	KindSalesSummary              ReportKind = "sales_summary"
	KindSubscriptionEventsSummary ReportKind = "subscription_events_summary"
)

// ReportKind names one of the fixed report shapes the harvester downloads.
type ReportKind string

// ParseReportKind normalizes and validates a configured kind.
func ParseReportKind(raw string) (ReportKind, error) {
	k := ReportKind(strings.ToLower(strings.TrimSpace(raw)))
	switch k {
	case KindSalesSummary, KindSubscriptionEventsSummary:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported report kind %q", raw)
	}
}

// Report is a downloaded report payload.
type Report struct {
	Kind         ReportKind
	Date         string
	VendorNumber string
	Compressed   bool
	Data         []byte
	FetchedAt    time.Time
}

// Key identifies a report in the harvest ledger and in sink paths.
func (r Report) Key() string {
	return ReportKey(r.Kind, r.Date)
}

// ReportKey builds the ledger key for kind on date.
func ReportKey(kind ReportKind, date string) string {
	return string(kind) + "/" + date
}

// FileName is the object name for the payload, reflecting its encoding.
func (r Report) FileName() string {
	if r.Compressed {
		return r.Date + ".tsv.gz"
	}
	return r.Date + ".tsv"
}

// DatesBack returns the lookback most recent complete days before now (UTC), oldest first.
func DatesBack(now time.Time, lookback int) []string {
	if lookback <= 0 {
		return nil
	}
	u := now.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, lookback)
	for i := lookback; i >= 1; i-- {
		out = append(out, day.AddDate(0, 0, -i).Format(ReportDateLayout))
	}
	return out
}
