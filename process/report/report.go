package report

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"labelcheck/models"
	"labelcheck/pkg/store"
)

func mustStoreFromEnv() *store.Store {
	s, err := store.Open(os.Getenv("DB_DSN"))
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return s
}

// MonthRange returns [start, end) in UTC for a YYYY-MM month.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// RunReport prints the compliance summary of one month (YYYY-MM) and
// optionally lists its scans.
func RunReport(month string, list bool) {
	start, end, err := MonthRange(month)
	if err != nil {
		log.Fatal(err)
	}
	s := mustStoreFromEnv()
	ctx := context.Background()
	stats, err := s.ComplianceStats(ctx, start, end)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	var rows []models.Scan
	if list {
		if rows, err = s.ScansBetween(ctx, start, end); err != nil {
			log.Fatalf("fetch rows failed: %v", err)
		}
	}
	Write(os.Stdout, month, stats, rows)
}

// Write renders a report.
func Write(w io.Writer, month string, st store.Stats, rows []models.Scan) {
	fmt.Fprintf(w, "Compliance report month=%s (UTC):\n", month)
	fmt.Fprintf(w, "  scans=%d compliant=%d non_compliant=%d failed=%d matched_from_csv=%d avg_score=%.1f\n",
		st.Total, st.Compliant, st.NonCompliant, st.Failed, st.Matched, st.AvgScore)
	for _, r := range rows {
		status := "Compliant"
		switch {
		case r.Failed:
			status = "Failed: " + r.FailedReason
		case !r.Compliant:
			status = "Non-Compliant"
		}
		fmt.Fprintf(w, "%d|%s|%s|%s|%s|%d|%s|%s\n", r.ID, r.Source, r.FileName, r.Product, r.MRP,
			r.ComplianceScore, status, r.CreatedAt.Format(time.RFC3339))
	}
}
