package recommend

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser(t *testing.T) *CandidateParser {
	t.Helper()
	v, err := NewCandidateValidator()
	require.NoError(t, err)
	return NewCandidateParser(v, zerolog.Nop())
}

func TestCandidateParser_DropsMalformedLines(t *testing.T) {
	p := newTestParser(t)

	res := p.Parse("{\"songTitle\":\"A\",\"artist\":\"B\"}\nnot json\n{\"songTitle\":\"C\",\"artist\":\"D\"}")

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, RawCandidate{SongTitle: "A", Artist: "B"}, res.Candidates[0])
	assert.Equal(t, RawCandidate{SongTitle: "C", Artist: "D"}, res.Candidates[1])
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, 2, res.Dropped[0].Line)
	assert.Equal(t, "not json", res.Dropped[0].Text)
}

func TestCandidateParser_SkipsBlankLinesAndFences(t *testing.T) {
	p := newTestParser(t)

	text := "```json\r\n{\"songTitle\":\"A\",\"artist\":\"B\"}\r\n\r\n   \n{\"songTitle\":\"C\",\"artist\":\"D\"}\n```"
	res := p.Parse(text)

	assert.Len(t, res.Candidates, 2)
	assert.Empty(t, res.Dropped)
}

func TestCandidateParser_KeepsDuplicates(t *testing.T) {
	p := newTestParser(t)

	line := `{"songTitle":"A","artist":"B"}`
	res := p.Parse(line + "\n" + line)

	assert.Len(t, res.Candidates, 2)
}

func TestCandidateParser_Repairs(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name string
		line string
		want RawCandidate
	}{
		{"trailing comma", `{"songTitle": "Ditto", "artist": "NewJeans",}`, RawCandidate{"Ditto", "NewJeans"}},
		{"single quotes", `{'songTitle': 'Ditto', 'artist': 'NewJeans'}`, RawCandidate{"Ditto", "NewJeans"}},
		{"bare keys", `{songTitle: "Ditto", artist: "NewJeans"}`, RawCandidate{"Ditto", "NewJeans"}},
		{"list marker", `1. {"songTitle": "Ditto", "artist": "NewJeans"}`, RawCandidate{"Ditto", "NewJeans"}},
		{"apostrophe kept", `{"songTitle": "Don't Stop", "artist": "Fleetwood Mac",}`, RawCandidate{"Don't Stop", "Fleetwood Mac"}},
		{"trimmed fields", `{"songTitle": "  Ditto ", "artist": " NewJeans"}`, RawCandidate{"Ditto", "NewJeans"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Parse(tt.line)
			require.Len(t, res.Candidates, 1, "dropped: %+v", res.Dropped)
			assert.Equal(t, tt.want, res.Candidates[0])
		})
	}
}

func TestCandidateParser_RejectsMissingFields(t *testing.T) {
	p := newTestParser(t)

	text := `{"songTitle": "", "artist": "B"}
{"songTitle": "A"}
{"songTitle": "   ", "artist": "B"}
{"songTitle": 5, "artist": "B"}
{"songTitle": "A", "artist": "B"}`

	res := p.Parse(text)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "A", res.Candidates[0].SongTitle)
	assert.Len(t, res.Dropped, 4)
}

func TestCandidateParser_WithoutValidatorAcceptsAnyObject(t *testing.T) {
	p := NewCandidateParser(nil, zerolog.Nop())

	res := p.Parse(`{"songTitle": "", "artist": "B"}`)

	require.Len(t, res.Candidates, 1)
	assert.Empty(t, res.Candidates[0].SongTitle)
}

func TestCandidateValidator(t *testing.T) {
	v, err := NewCandidateValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate([]byte(`{"songTitle":"A","artist":"B","year":1999}`)))
	assert.Error(t, v.Validate([]byte(`{"songTitle":"A"}`)))
	assert.Error(t, v.Validate([]byte(`{"songTitle":"A","artist":" "}`)))
	assert.Error(t, v.Validate([]byte(`["A","B"]`)))
}

func TestNewSchemaValidator_InvalidSchema(t *testing.T) {
	_, err := NewSchemaValidator([]byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestOutputPolicy(t *testing.T) {
	assert.Error(t, OutputPolicy{}.Check("  \n "))
	assert.NoError(t, OutputPolicy{}.Check("x"))
	assert.Error(t, OutputPolicy{MaxOutputSize: 3}.Check("abcd"))
	assert.NoError(t, OutputPolicy{MaxOutputSize: 4}.Check("abcd"))
}

func TestQualityGate(t *testing.T) {
	gate := QualityGate{MinResults: 2}
	rec := Recommendation{SongTitle: "A", Artist: "B", Link: "https://youtu.be/x"}

	for n := 0; n < 2; n++ {
		err := gate.Check(make([]Recommendation, n))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientResults)

		var ire *InsufficientResultsError
		require.ErrorAs(t, err, &ire)
		assert.Equal(t, n, ire.Got)
		assert.Equal(t, 2, ire.Want)
	}

	assert.NoError(t, gate.Check([]Recommendation{rec, rec}))
	assert.NoError(t, gate.Check([]Recommendation{rec, rec, rec}))
	assert.Error(t, QualityGate{}.Check([]Recommendation{rec}))
}
