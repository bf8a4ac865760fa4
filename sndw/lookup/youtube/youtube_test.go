package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/soundware/sndw/metrics"
	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "snippet", q.Get("part"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "1", q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("videoEmbeddable"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "Ditto NewJeans official", q.Get("q"))

		_, _ = w.Write([]byte(`{"items": [{"id": {"kind": "youtube#video", "videoId": "pSUydWEqKwE"}, "snippet": {"title": "Ditto"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL+"/youtube/v3", time.Second, zerolog.Nop())

	res, err := c.Search(context.Background(), ports.LookupRequest{
		Query:          "Ditto NewJeans official",
		MaxResults:     1,
		EmbeddableOnly: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "https://youtu.be/pSUydWEqKwE", res.Link)
}

func TestClient_SearchNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	res, err := NewClient("k", srv.URL, 0, zerolog.Nop()).Search(context.Background(), ports.LookupRequest{Query: "nothing"})

	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Link)
}

func TestClient_SearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota", "errors": [{"reason": "quotaExceeded"}]}}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, 0, zerolog.Nop()).Search(context.Background(), ports.LookupRequest{Query: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "quotaExceeded", apiErr.Reason)
}

func TestClient_NotConfigured(t *testing.T) {
	_, err := NewClient("", "", 0, zerolog.Nop()).Search(context.Background(), ports.LookupRequest{Query: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type countingLookup struct {
	calls atomic.Int32
	err   error
}

func (l *countingLookup) Search(ctx context.Context, req ports.LookupRequest) (ports.LookupResult, error) {
	l.calls.Add(1)
	if l.err != nil {
		return ports.LookupResult{}, l.err
	}
	return ports.LookupResult{}, nil
}

func TestBreakerLookup_OpensOnFailures(t *testing.T) {
	m := metrics.NewPipeline(prometheus.NewRegistry())
	next := &countingLookup{err: errors.New("boom")}
	b := NewBreakerLookup(next, BreakerSettings{MinRequests: 2, FailureRatio: 0.5, Timeout: time.Hour}, m, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := b.Search(context.Background(), ports.LookupRequest{Query: "x"})
		assert.EqualError(t, err, "boom")
	}

	_, err := b.Search(context.Background(), ports.LookupRequest{Query: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues(BreakerName)))
}

func TestBreakerLookup_MissesAndCancellationDoNotTrip(t *testing.T) {
	next := &countingLookup{}
	b := NewBreakerLookup(next, BreakerSettings{MinRequests: 1, FailureRatio: 0.1}, nil, zerolog.Nop())

	for i := 0; i < 5; i++ {
		res, err := b.Search(context.Background(), ports.LookupRequest{Query: "x"})
		require.NoError(t, err)
		assert.False(t, res.Found)
	}

	next.err = context.Canceled
	for i := 0; i < 5; i++ {
		_, err := b.Search(context.Background(), ports.LookupRequest{Query: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, gobreaker.StateClosed, b.State())
}
