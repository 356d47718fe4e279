package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// scanFilter selects the scans to prune; $1 is the cutoff.
func scanFilter(failedOnly bool) string {
	if failedOnly {
		return `SELECT id FROM scans WHERE created_at < $1 AND failed`
	}
	return `SELECT id FROM scans WHERE created_at < $1`
}

func cutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

// Deletes scans (and their violations) older than -days.
func main() {
	days := flag.Int("days", 90, "delete scans older than this many days")
	failedOnly := flag.Bool("failed-only", false, "only delete scans whose image could not be checked")
	dry := flag.Bool("dry-run", true, "count only, delete nothing")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set")
	}
	if *days < 1 {
		log.Fatal("-days must be >= 1")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	before := cutoff(time.Now(), *days)
	sel := scanFilter(*failedOnly)
	var n int64
	if err := db.QueryRow(`SELECT count(*) FROM (`+sel+`) s`, before).Scan(&n); err != nil {
		log.Fatalf("count scans: %v", err)
	}
	if *dry {
		fmt.Printf("DRY: would delete %d scans created before %s\n", n, before.Format(time.RFC3339))
		return
	}

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("begin: %v", err)
	}
	// Delete violations first so the FK never blocks
	res1, err := tx.Exec(`DELETE FROM violations WHERE scan_id IN (`+sel+`)`, before)
	if err != nil {
		_ = tx.Rollback()
		log.Fatalf("delete violations: %v", err)
	}
	n1, _ := res1.RowsAffected()
	res2, err := tx.Exec(`DELETE FROM scans WHERE id IN (`+sel+`)`, before)
	if err != nil {
		_ = tx.Rollback()
		log.Fatalf("delete scans: %v", err)
	}
	n2, _ := res2.RowsAffected()
	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Printf("prune done: violations deleted=%d, scans deleted=%d\n", n1, n2)
}
