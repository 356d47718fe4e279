package main

import "testing"

func TestMissingFKs(t *testing.T) {
	found := map[string]bool{
		"users.role_id -> roles":      true,
		"violations.scan_id -> scans": true,
	}
	missing := missingFKs(found)
	if len(missing) != 1 || missing[0] != "scans.user_id -> users" {
		t.Fatalf("unexpected missing %v", missing)
	}
	found["scans.user_id -> users"] = true
	if m := missingFKs(found); len(m) != 0 {
		t.Fatalf("expected none missing, got %v", m)
	}
}

func TestEffectiveWorkers(t *testing.T) {
	if effectiveWorkers(3) != 3 || effectiveWorkers(0) < 1 {
		t.Fatalf("effectiveWorkers mismatch")
	}
}
