package recommend

import "time"

// RawCandidate is one song/artist pair decoded from a generated line.
type RawCandidate struct {
	SongTitle string `json:"songTitle"`
	Artist    string `json:"artist"`
}

// Recommendation is a candidate resolved to a playable link. Link is never empty.
type Recommendation struct {
	SongTitle string `json:"songTitle"`
	Artist    string `json:"artist"`
	Link      string `json:"link"`
}

// TurnState names the stages a turn moves through.
type TurnState string

const (
	StateReceived  TurnState = "received"
	StateGenerated TurnState = "generated"
	StateParsed    TurnState = "parsed"
	StateEnriched  TurnState = "enriched"
	StateGated     TurnState = "gated"
	StateCompleted TurnState = "completed"
	StateFailed    TurnState = "failed"
)

// TurnStats summarizes what happened to the candidates of one turn.
type TurnStats struct {
	Candidates    int           // lines accepted by the parser
	Dropped       int           // lines rejected by the parser
	Hits          int           // lookups that resolved a link
	Misses        int           // lookups with no match
	LookupErrors  int           // lookups that failed
	PrunedTurns   int           // turns evicted from the context window
	Duration      time.Duration // wall time of the turn
	FinalState    TurnState
	ContextLength int // turns held after pruning
}

// TurnResult is the payload of a completed turn.
type TurnResult struct {
	SessionID       string
	Recommendations []Recommendation
	Stats           TurnStats
}
