package sanitize

import (
	"reflect"
	"testing"
)

func TestParseTables(t *testing.T) {
	got := ParseTables(" scans, ,violations;drop,users , 9bad,_tmp")
	want := []string{"scans", "users", "_tmp"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTruncateStatement(t *testing.T) {
	got := TruncateStatement(ParseTables(DefaultTables))
	want := `TRUNCATE TABLE "violations", "scans", "users", "roles" RESTART IDENTITY CASCADE`
	if got != want {
		t.Fatalf("got %s", got)
	}
}
