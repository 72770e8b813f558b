package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vistaceo/insight-engine/internal/core/domain"
)

// Candidate is one structurally decoded artifact candidate.
type Candidate struct {
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Category    string  `json:"category"`
	Horizon     string  `json:"horizon"`
	Confidence  float32 `json:"confidence"`
	Probability float32 `json:"probability"`
	Evidence    float32 `json:"evidence"`
	Body        string  `json:"body"`
}

// Payload is the parser's output for one attempt. Issues are parse-level
// hard failures recorded for the quality gate; they never abort the attempt
// on their own.
type Payload struct {
	Kind       domain.ArtifactKind
	Candidates []Candidate
	Markdown   string
	Repairs    []string
	Issues     []string
}

// Parse extracts and repairs the payload for the given artifact kind.
func Parse(kind domain.ArtifactKind, rawText, requestedTitle string) Payload {
	payload := Payload{Kind: kind}

	extracted := ExtractPayload(rawText)

	switch kind {
	case domain.KindBlogPost:
		repaired, repairs := RepairMarkdown(extracted, requestedTitle)
		payload.Markdown = repaired
		payload.Repairs = repairs

		if strings.TrimSpace(repaired) == "" {
			payload.Issues = append(payload.Issues, "empty markdown payload")
		}
	case domain.KindPrediction:
		payload.Candidates, payload.Issues = decodeCandidates(extracted)
	case domain.KindMissionPlan:
		payload.Candidates, payload.Issues = decodeCandidates(extracted)
	default:
		payload.Issues = append(payload.Issues, fmt.Sprintf("unknown artifact kind %q", kind))
	}

	return payload
}

// decodeCandidates parses the JSON payload. The prediction contract returns
// an array, but a bare object is accepted since models frequently unwrap
// one-element arrays.
func decodeCandidates(text string) ([]Candidate, []string) {
	narrowed := ExtractJSON(text)

	var candidates []Candidate
	if err := json.Unmarshal([]byte(narrowed), &candidates); err == nil {
		if len(candidates) == 0 {
			return nil, []string{"empty candidate set"}
		}

		return candidates, nil
	}

	var single Candidate
	if err := json.Unmarshal([]byte(narrowed), &single); err != nil {
		return nil, []string{fmt.Sprintf("invalid JSON payload: %v", err)}
	}

	return []Candidate{single}, nil
}
