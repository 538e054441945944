package publishers

import (
	"time"

	"github.com/samvad-hq/storeconnect-reports/internal/domain"
)

// Event announces a report that was fetched and stored.
type Event struct {
	ReportKind   string    `json:"report_kind"`
	ReportDate   string    `json:"report_date"`
	VendorNumber string    `json:"vendor_number"`
	Location     string    `json:"location"`
	Bytes        int       `json:"bytes"`
	Compressed   bool      `json:"compressed"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NewEvent constructs an Event for a report stored at location.
func NewEvent(report domain.Report, location string) Event {
	fetched := report.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	return Event{
		ReportKind:   string(report.Kind),
		ReportDate:   report.Date,
		VendorNumber: report.VendorNumber,
		Location:     location,
		Bytes:        len(report.Data),
		Compressed:   report.Compressed,
		FetchedAt:    fetched.UTC(),
	}
}

// attributes are the routing attributes attached to queue/topic messages.
// Empty values are left out; SQS and SNS reject empty string attributes.
func (e Event) attributes() map[string]string {
	attrs := make(map[string]string, 3)
	for k, v := range map[string]string{
		"report_kind":   e.ReportKind,
		"report_date":   e.ReportDate,
		"vendor_number": e.VendorNumber,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs
}
