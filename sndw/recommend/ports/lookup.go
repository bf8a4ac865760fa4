package recommendports

import "context"

// LookupRequest asks for the canonical playable reference matching a free-text query.
type LookupRequest struct {
	Query          string
	MaxResults     int  // the pipeline always asks for exactly one best match
	EmbeddableOnly bool // restrict to results that can be embedded/played
}

// LookupResult carries zero or one resolved reference.
type LookupResult struct {
	Link  string
	Found bool
}

// Lookup resolves candidates to playable references. A miss is (LookupResult{}, nil);
// transport and API failures are returned as errors.
type Lookup interface {
	Search(ctx context.Context, req LookupRequest) (LookupResult, error)
}
