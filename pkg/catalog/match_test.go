package catalog

import (
	"testing"
)

func sample() []Entry {
	return []Entry{
		{ID: 0, Name: "Samsung Galaxy S23 Ultra", Details: "12GB RAM 256GB storage", Price: "₹1,24,999"},
		{ID: 1, Name: "Apple iPhone 15", Details: "128GB Black", Price: "₹79,900"},
		{ID: 2, Name: "OnePlus Nord CE 3", Details: "5G 8GB RAM", Price: "₹24,999"},
		{ID: 3, Name: "", Details: ""},
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"ABC-123!!":          "abc 123",
		"":                   "",
		"  Hello,\tWorld \n": "hello world",
		"₹499/-":             "499",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q want %q", in, got, want)
		}
	}
}

func TestRatioBounds(t *testing.T) {
	if r := Ratio("abc", "abc"); r != 1 {
		t.Fatalf("identical strings: got %v", r)
	}
	if r := Ratio("abc", "xyz"); r != 0 {
		t.Fatalf("disjoint strings: got %v", r)
	}
	r := Ratio("galaxy s23", "galaxy s24")
	if r <= 0.5 || r >= 1 {
		t.Fatalf("near strings: got %v", r)
	}
}

func TestBestMatchEmptyInputs(t *testing.T) {
	if m, ok := BestMatch("", sample()); ok || m.Score != 0 {
		t.Fatalf("empty text should miss, got %+v", m)
	}
	if m, ok := BestMatch("!!!", sample()); ok || m.Score != 0 {
		t.Fatalf("text normalizing to empty should miss, got %+v", m)
	}
	if m, ok := BestMatch("iphone", nil); ok || m.Score != 0 {
		t.Fatalf("empty catalog should miss, got %+v", m)
	}
	if got := TopMatches("", sample(), 0, 5); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
}

func TestBestIsMaxScore(t *testing.T) {
	texts := []string{"Samsung Galaxy S23", "apple iphone 15 128gb", "oneplus nord", "random words"}
	for _, text := range texts {
		best, ok := BestMatch(text, sample())
		max := 0.0
		for _, e := range sample() {
			if s, ok := Score(Normalize(text), e); ok && s > max {
				max = s
			}
		}
		if !ok || best.Score != max {
			t.Fatalf("%q: best %v want max %v", text, best.Score, max)
		}
	}
}

func TestBestMatchTieKeepsFirst(t *testing.T) {
	entries := []Entry{
		{Name: "Whey Gold", Price: "first"},
		{Name: "Whey Gold", Price: "second"},
	}
	m, ok := BestMatch("whey gold", entries)
	if !ok || m.Entry.Price != "first" || m.Score != 1 {
		t.Fatalf("expected first entry with score 1, got %+v", m)
	}
}

func TestTopMatchesSortedAboveMin(t *testing.T) {
	const min = 0.3
	got := TopMatches("samsung galaxy s23 ultra 12gb ram", sample(), min, 2)
	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("expected 1..2 matches, got %d", len(got))
	}
	if got[0].Entry.Name != "Samsung Galaxy S23 Ultra" {
		t.Fatalf("unexpected top match %q", got[0].Entry.Name)
	}
	for i, m := range got {
		if m.Score < min {
			t.Fatalf("match %d below min: %v", i, m.Score)
		}
		if i > 0 && m.Score > got[i-1].Score {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestPercent(t *testing.T) {
	if p := (Match{Score: 0.912345}).Percent(); p != 91.23 {
		t.Fatalf("expected 91.23 got %v", p)
	}
}
