package main

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// expectedFKs are the relations the label check schema relies on, as
// "table.column -> referenced_table".
var expectedFKs = []string{
	"users.role_id -> roles",
	"scans.user_id -> users",
	"violations.scan_id -> scans",
}

// RunInspectFKs prints the foreign keys on the label check tables and
// reports any expected relation that is missing.
func RunInspectFKs(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT
		  con.conname AS constraint_name,
		  rel.relname AS table_name,
		  att.attname AS column_name,
		  confrel.relname AS referenced_table,
		  pg_get_constraintdef(con.oid) AS definition
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_class confrel ON confrel.oid = con.confrelid
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = con.conkey[1]
		WHERE con.contype = 'f' AND rel.relname IN ('users', 'scans', 'violations')
		ORDER BY rel.relname, con.conname;
	`)
	if err != nil {
		return fmt.Errorf("query constraints: %w", err)
	}
	defer rows.Close()

	found := map[string]bool{}
	fmt.Println("Foreign keys:")
	for rows.Next() {
		var cname, table, column, reftable, def string
		if err := rows.Scan(&cname, &table, &column, &reftable, &def); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		key := fmt.Sprintf("%s.%s -> %s", table, column, reftable)
		found[key] = true
		fmt.Printf("- %s: %s\n    def: %s\n", cname, key, def)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	if missing := missingFKs(found); len(missing) > 0 {
		return fmt.Errorf("missing foreign keys: %s (run `labelcheck migrate`)", strings.Join(missing, ", "))
	}
	fmt.Println("schema OK")
	return nil
}

func missingFKs(found map[string]bool) []string {
	var out []string
	for _, k := range expectedFKs {
		if !found[k] {
			out = append(out, k)
		}
	}
	return out
}
