package catalog

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	nonAlnumRE = regexp.MustCompile(`[^a-z0-9\s]`)
	spaceRE    = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, replaces everything but ASCII letters, digits and
// whitespace with a space and collapses whitespace runs.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = nonAlnumRE.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// Ratio is the longest-matching-blocks similarity of a and b in [0,1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Match pairs a catalog entry with its similarity score in [0,1].
type Match struct {
	Entry Entry
	Score float64
}

// Percent is the score scaled to 0..100 and rounded to two decimals.
func (m Match) Percent() float64 {
	return math.Round(m.Score*10000) / 100
}

// Score compares normalized OCR text with an entry: the better of the ratio
// against name plus details and the ratio against the name alone.
// ok is false when the entry has nothing to compare.
func Score(normText string, e Entry) (score float64, ok bool) {
	name := Normalize(e.Name)
	combo := strings.TrimSpace(name + " " + Normalize(e.Details))
	if combo == "" || normText == "" {
		return 0, false
	}
	score = Ratio(normText, combo)
	if name != "" {
		score = math.Max(score, Ratio(normText, name))
	}
	return score, true
}

// BestMatch returns the highest scoring entry. Ties keep the first entry in
// list order. Empty text, an empty list or an all-zero result is a miss.
func BestMatch(text string, entries []Entry) (Match, bool) {
	norm := Normalize(text)
	var best Match
	found := false
	for _, e := range entries {
		s, ok := Score(norm, e)
		if !ok {
			continue
		}
		if s > best.Score {
			best = Match{Entry: e, Score: s}
			found = true
		}
	}
	return best, found
}

// TopMatches returns every entry scoring at least minRatio, best first,
// truncated to limit. Equal scores keep list order.
func TopMatches(text string, entries []Entry, minRatio float64, limit int) []Match {
	norm := Normalize(text)
	if norm == "" || limit <= 0 {
		return nil
	}
	var out []Match
	for _, e := range entries {
		s, ok := Score(norm, e)
		if ok && s >= minRatio {
			out = append(out, Match{Entry: e, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
