package catalog

// MatchOptions tunes reconciliation.
type MatchOptions struct {
	// AcceptThreshold is the score at which a match is trusted enough to
	// overwrite extracted fields.
	AcceptThreshold float64
	// MinRatio and Limit bound the suggestion list.
	MinRatio float64
	Limit    int
}

// DefaultMatchOptions returns 0.90 acceptance, 0.50 minimum and 5 suggestions.
func DefaultMatchOptions() MatchOptions {
	return MatchOptions{AcceptThreshold: 0.90, MinRatio: 0.50, Limit: 5}
}

// Reconciliation is the outcome of matching one text against the catalog.
type Reconciliation struct {
	Category    Category
	Best        Match
	Found       bool
	Confident   bool
	Suggestions []Match
}

// Reconcile guesses the category of text, matches against that category
// first and retries against the whole catalog when nothing there reaches the
// acceptance threshold. Suggestions come from the list the best match was
// taken from.
func Reconcile(text string, s Store, opts MatchOptions) Reconciliation {
	r := Reconciliation{Category: GuessCategory(text)}
	if s == nil {
		return r
	}
	pool := s.Entries(r.Category)
	r.Best, r.Found = BestMatch(text, pool)
	if r.Category != None && (!r.Found || r.Best.Score < opts.AcceptThreshold) {
		pool = s.All()
		r.Best, r.Found = BestMatch(text, pool)
	}
	r.Confident = r.Found && r.Best.Score >= opts.AcceptThreshold
	r.Suggestions = TopMatches(text, pool, opts.MinRatio, opts.Limit)
	return r
}
