package catalog

import "testing"

func testCatalog() *Catalog {
	return New(map[Category][]Entry{
		Laptop: {
			{Name: "Galaxy Book3 Pro", Details: "Intel i7 16GB", Price: "₹1,31,990"},
			{Name: "Dell Inspiron 15", Details: "i5 8GB SSD", Price: "₹55,990"},
		},
		Mobile: {
			{Name: "Galaxy S23 Ultra", Details: "12GB 256GB", Price: "₹1,24,999"},
		},
		Protein: {
			{Name: "MuscleBlaze Whey Gold", Details: "2kg Rich Chocolate", Price: "₹6,199"},
		},
	})
}

func TestReconcileWithinCategory(t *testing.T) {
	r := Reconcile("MuscleBlaze Whey Gold", testCatalog(), DefaultMatchOptions())
	if r.Category != Protein {
		t.Fatalf("expected protein, got %q", r.Category)
	}
	if !r.Confident || r.Best.Entry.Name != "MuscleBlaze Whey Gold" {
		t.Fatalf("expected confident match, got %+v", r.Best)
	}
	if len(r.Suggestions) != 1 {
		t.Fatalf("expected one suggestion from the category, got %d", len(r.Suggestions))
	}
}

func TestReconcileFallsBackToFullCatalog(t *testing.T) {
	r := Reconcile("galaxy book3 pro", testCatalog(), DefaultMatchOptions())
	if r.Category != Mobile {
		t.Fatalf("keyword classifier should guess mobile, got %q", r.Category)
	}
	if !r.Confident || r.Best.Entry.Category != Laptop || r.Best.Entry.ID != 0 {
		t.Fatalf("expected fallback to laptop entry 0, got %+v", r.Best)
	}
	if len(r.Suggestions) == 0 || r.Suggestions[0].Entry.Name != "Galaxy Book3 Pro" {
		t.Fatalf("suggestions should come from the full catalog: %+v", r.Suggestions)
	}
}

func TestReconcileMiss(t *testing.T) {
	r := Reconcile("", testCatalog(), DefaultMatchOptions())
	if r.Found || r.Confident || r.Category != None || len(r.Suggestions) != 0 {
		t.Fatalf("expected miss, got %+v", r)
	}
	r = Reconcile("samsung", New(nil), DefaultMatchOptions())
	if r.Found || r.Confident {
		t.Fatalf("empty catalog should miss, got %+v", r)
	}
}
