package recommend

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

var (
	errNoObject = errors.New("no JSON object on line")

	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// DroppedLine records a generated line the parser rejected.
type DroppedLine struct {
	Line   int // 1-based line number in the generated text
	Text   string
	Reason error
}

// ParseResult is the outcome of parsing one generation.
type ParseResult struct {
	Candidates []RawCandidate // accepted, in source order, duplicates kept
	Dropped    []DroppedLine
}

// CandidateParser turns newline-delimited generated text into candidates. A bad
// line is dropped and logged; it never fails the parse.
type CandidateParser struct {
	validator *CandidateValidator // nil skips field validation
	logger    zerolog.Logger
}

// NewCandidateParser creates a parser. With a nil validator, any decodable object is accepted.
func NewCandidateParser(validator *CandidateValidator, logger zerolog.Logger) *CandidateParser {
	return &CandidateParser{validator: validator, logger: logger}
}

// Parse splits text on newlines and decodes each non-blank line.
func (p *CandidateParser) Parse(text string) ParseResult {
	var res ParseResult

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		cand, err := p.parseLine(line)
		if err != nil {
			p.logger.Warn().Err(err).Int("line", i+1).Str("text", line).Msg("Failed to parse recommendation")
			res.Dropped = append(res.Dropped, DroppedLine{Line: i + 1, Text: line, Reason: err})
			continue
		}
		res.Candidates = append(res.Candidates, cand)
	}

	return res
}

func (p *CandidateParser) parseLine(line string) (RawCandidate, error) {
	// Models sometimes wrap records in list markers or prose; keep the outermost object.
	start := strings.IndexByte(line, '{')
	end := strings.LastIndexByte(line, '}')
	if start < 0 || end < start {
		return RawCandidate{}, errNoObject
	}
	obj := []byte(line[start : end+1])

	var doc map[string]any
	if err := json.Unmarshal(obj, &doc); err != nil {
		doc = nil
		if fixErr := json.Unmarshal([]byte(fixJSON(string(obj))), &doc); fixErr != nil {
			return RawCandidate{}, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if p.validator != nil {
		if err := p.validator.ValidateValue(doc); err != nil {
			return RawCandidate{}, err
		}
	}

	title, _ := doc["songTitle"].(string)
	artist, _ := doc["artist"].(string)
	return RawCandidate{
		SongTitle: strings.TrimSpace(title),
		Artist:    strings.TrimSpace(artist),
	}, nil
}

// fixJSON repairs the common ways models break JSON: trailing commas, bare keys
// and single-quoted strings.
func fixJSON(s string) string {
	// Apostrophes inside double-quoted titles must survive.
	if !strings.Contains(s, `"`) {
		s = strings.ReplaceAll(s, "'", `"`)
	}
	s = trailingComma.ReplaceAllString(s, "$1")
	s = unquotedKey.ReplaceAllString(s, `$1"$2":`)
	return s
}
