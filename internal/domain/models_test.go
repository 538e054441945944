package domain

import (
	"testing"
	"time"
)

func TestParseReportKind(t *testing.T) {
	k, err := ParseReportKind(" Sales_Summary ")
	if err != nil || k != KindSalesSummary {
		t.Fatalf("ParseReportKind = %q, %v", k, err)
	}
	if _, err := ParseReportKind("financial"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}

func TestDatesBack(t *testing.T) {
	now := time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC)
	got := DatesBack(now, 3)
	want := []string{"2026-02-27", "2026-02-28", "2026-03-01"}
	if len(got) != len(want) {
		t.Fatalf("DatesBack = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DatesBack[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestReportFileName(t *testing.T) {
	r := Report{Kind: KindSalesSummary, Date: "2026-03-01", Compressed: true}
	if r.FileName() != "2026-03-01.tsv.gz" {
		t.Fatalf("FileName = %s", r.FileName())
	}
	if r.Key() != "sales_summary/2026-03-01" {
		t.Fatalf("Key = %s", r.Key())
	}
}
