package recommend

// DefaultMinResults is the fewest recommendations a turn may return.
const DefaultMinResults = 2

// QualityGate fails turns whose enriched result set is too thin.
type QualityGate struct {
	MinResults int
}

// Check returns *InsufficientResultsError when recs has fewer than MinResults entries.
func (g QualityGate) Check(recs []Recommendation) error {
	want := g.MinResults
	if want <= 0 {
		want = DefaultMinResults
	}
	if len(recs) < want {
		return &InsufficientResultsError{Got: len(recs), Want: want}
	}
	return nil
}
