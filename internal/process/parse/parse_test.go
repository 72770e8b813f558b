package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaceo/insight-engine/internal/core/domain"
)

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text",
			input:    "  just the payload  ",
			expected: "just the payload",
		},
		{
			name:     "fenced block wins over surrounding chatter",
			input:    "Sure, here you go:\n```json\n[{\"title\":\"x\"}]\n```\nLet me know!",
			expected: `[{"title":"x"}]`,
		},
		{
			name:     "fenced block without language tag",
			input:    "```\ncontent\n```",
			expected: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPayload(tt.input))
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "array with preamble and trailing chatter",
			input:    "Here is the result: [1, 2] hope that helps",
			expected: "[1, 2]",
		},
		{
			name:     "object when no array present",
			input:    "result: {\"a\": 1} done",
			expected: `{"a": 1}`,
		},
		{
			name:     "array preferred over object",
			input:    `[{"a": 1}]`,
			expected: `[{"a": 1}]`,
		},
		{
			name:     "no JSON at all",
			input:    "nothing here",
			expected: "nothing here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSON(tt.input))
		})
	}
}

func TestParsePredictionCandidates(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"title\":\"Expand delivery radius\",\"summary\":\"s\",\"category\":\"restaurant\",\"horizon\":\"short\",\"confidence\":0.8,\"probability\":0.6,\"evidence\":0.7,\"body\":\"b\"}]\n```"

	payload := Parse(domain.KindPrediction, raw, "")

	require.Empty(t, payload.Issues)
	require.Len(t, payload.Candidates, 1)
	assert.Equal(t, "Expand delivery radius", payload.Candidates[0].Title)
	assert.Equal(t, float32(0.8), payload.Candidates[0].Confidence)
}

func TestParseSingleObjectAcceptedAsOneCandidate(t *testing.T) {
	raw := `{"title":"t","summary":"s","category":"c","horizon":"medium","confidence":0.5,"probability":0.5,"evidence":0.5,"body":"b"}`

	payload := Parse(domain.KindMissionPlan, raw, "")

	require.Empty(t, payload.Issues)
	require.Len(t, payload.Candidates, 1)
}

func TestParseInvalidJSONBecomesIssueNotError(t *testing.T) {
	payload := Parse(domain.KindPrediction, "this is not JSON at all", "")

	assert.Empty(t, payload.Candidates)
	require.Len(t, payload.Issues, 1)
	assert.Contains(t, payload.Issues[0], "invalid JSON payload")
}

func TestParseEmptyCandidateSet(t *testing.T) {
	payload := Parse(domain.KindPrediction, "[]", "")

	assert.Equal(t, []string{"empty candidate set"}, payload.Issues)
}

func TestRepairMarkdownStripsDuplicateTitle(t *testing.T) {
	md := "# Grow your catering line\n\nBody text here."

	repaired, applied := RepairMarkdown(md, "Grow your catering line")

	assert.Equal(t, "Body text here.", repaired)
	assert.Contains(t, applied, "stripped duplicate title heading")
}

func TestRepairMarkdownKeepsUnrelatedTopHeading(t *testing.T) {
	md := "# A different heading\n\nBody."

	repaired, _ := RepairMarkdown(md, "Grow your catering line")

	assert.Contains(t, repaired, "# A different heading")
}

func TestRepairMarkdownPromotesShortBoldLines(t *testing.T) {
	md := "**Next steps**\n\ntext\n\n**This bold line is a full sentence and stays put.**"

	repaired, applied := RepairMarkdown(md, "")

	assert.Contains(t, repaired, "## Next steps")
	assert.Contains(t, repaired, "**This bold line is a full sentence and stays put.**")
	assert.Contains(t, applied, "promoted bold line to heading")
}

func TestRepairMarkdownIsIdempotent(t *testing.T) {
	inputs := []string{
		"# Title\n# Title\n\n## SHOUTING Heading With SEO Terms\n\n**Key takeaways**\n\ntext",
		"## Already fine\n\nplain paragraph",
		"**Bold promo**\n\nbody",
	}

	for _, md := range inputs {
		once, _ := RepairMarkdown(md, "Title")
		twice, _ := RepairMarkdown(once, "Title")
		assert.Equal(t, once, twice, "repair must be idempotent for %q", md)
	}
}

func TestSentenceCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Five Ways To Improve ROI", "Five ways to improve ROI"},
		{"WHY SEO MATTERS", "Why SEO matters"},
		{"already sentence case", "Already sentence case"},
		{"What About Pricing?", "What about pricing?"},
		{"SaaS metrics: a primer", "SaaS metrics: a primer"},
		{"ökonomie und wachstum", "Ökonomie und wachstum"},
		{"ÖKONOMIE Und Wachstum", "Ökonomie und wachstum"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SentenceCase(tt.input), "input %q", tt.input)
	}
}

func TestContainsTable(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "markdown pipe table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			expected: true,
		},
		{
			name:     "html table",
			input:    "some text <table><tr><td>x</td></tr></table>",
			expected: true,
		},
		{
			name:     "pipe characters without separator row",
			input:    "use the a | b notation inline",
			expected: false,
		},
		{
			name:     "horizontal rule is not a table",
			input:    "above\n\n---\n\nbelow",
			expected: false,
		},
		{
			name:     "mention of the word table",
			input:    "see the table below for details",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsTable(tt.input))
		})
	}
}

func TestCountTopHeadings(t *testing.T) {
	md := strings.Join([]string{"# One", "text", "# Two", "## sub"}, "\n")
	assert.Equal(t, 2, CountTopHeadings(md))
}
