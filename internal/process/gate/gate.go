// Package gate scores repaired model output against a fixed battery of
// structural and content checks. Evaluation is pure: no side effects, no
// wall-clock dependence, byte-identical reports for identical input.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	"github.com/vistaceo/insight-engine/internal/process/parse"
)

// Check names. Hard checks force failure regardless of score.
const (
	CheckPayloadParsed      = "payload_parsed"
	CheckNoTabularMarkup    = "no_tabular_markup"
	CheckMinLength          = "min_length"
	CheckNoDuplicateHeading = "no_duplicate_top_heading"

	CheckMinSections     = "min_sections"
	CheckReferences      = "min_references"
	CheckParagraphLength = "paragraph_length"
	CheckHeadingCase     = "heading_case"
	CheckNoStuffing      = "no_keyword_stuffing"
	CheckChecklist       = "has_checklist"
	CheckWorkedExample   = "has_worked_example"

	CheckFieldsComplete = "fields_complete"
	CheckHorizonValid   = "horizon_valid"
	CheckScoreRanges    = "score_ranges"
	CheckBodyPresent    = "body_present"
	CheckUniqueTitles   = "unique_titles"
)

// Issue texts for hard failures. The orchestrator feeds these back into the
// next prompt verbatim.
const (
	IssueTabularMarkup = "tabular markup forbidden"
)

// PassScore is the minimum percentage of checks that must pass.
const PassScore = 75

// Config tunes the structural thresholds.
type Config struct {
	MinWords          int
	MinSections       int
	MinReferences     int
	MaxParagraphWords int
	MinJSONChars      int
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		MinWords:          800,
		MinSections:       4,
		MinReferences:     2,
		MaxParagraphWords: 120,
		MinJSONChars:      200,
	}
}

// Gate evaluates payloads. Safe for concurrent use.
type Gate struct {
	cfg Config
}

// New creates a Gate.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

type checkResult struct {
	name   string
	hard   bool
	passed bool
	issue  string
}

// Evaluate runs the full battery for the payload's kind and builds the
// report. Checks are independent and order does not affect the outcome;
// results are assembled in a fixed order so reports stay byte-identical.
func (g *Gate) Evaluate(p parse.Payload) domain.QualityReport {
	var results []checkResult

	if p.Kind == domain.KindBlogPost {
		results = g.evaluateMarkdown(p)
	} else {
		results = g.evaluateCandidates(p)
	}

	return buildReport(results)
}

func (g *Gate) evaluateMarkdown(p parse.Payload) []checkResult {
	md := p.Markdown
	stats := analyzeMarkdown(md)

	parsed := len(p.Issues) == 0
	noTables := !parse.ContainsTable(md)
	longEnough := stats.words >= g.cfg.MinWords

	results := []checkResult{
		{CheckPayloadParsed, true, parsed, joinIssues(p.Issues)},
		{CheckNoTabularMarkup, true, noTables, IssueTabularMarkup},
		{CheckMinLength, true, longEnough, fmt.Sprintf("content too short: %d words, need %d", stats.words, g.cfg.MinWords)},
		{CheckNoDuplicateHeading, true, parse.CountTopHeadings(md) == 0, "duplicate top-level heading present"},
		{CheckMinSections, false, stats.sections >= g.cfg.MinSections, fmt.Sprintf("too few sections: %d, need %d", stats.sections, g.cfg.MinSections)},
		{CheckReferences, false, stats.links >= g.cfg.MinReferences, fmt.Sprintf("too few references: %d, need %d", stats.links, g.cfg.MinReferences)},
		{CheckParagraphLength, false, stats.longestParagraph <= g.cfg.MaxParagraphWords, fmt.Sprintf("paragraph too long: %d words, limit %d", stats.longestParagraph, g.cfg.MaxParagraphWords)},
		{CheckHeadingCase, false, headingsSentenceCased(md), "headings must use sentence case"},
		{CheckNoStuffing, false, !keywordStuffed(md), "keyword overconcentration detected"},
		{CheckChecklist, false, strings.Contains(md, "- [ ]"), "missing checklist element"},
		{CheckWorkedExample, false, containsWorkedExample(md), "missing worked example"},
	}

	return results
}

func (g *Gate) evaluateCandidates(p parse.Payload) []checkResult {
	parsed := len(p.Issues) == 0

	var totalChars int

	fieldsOK := parsed
	horizonsOK := parsed
	rangesOK := parsed
	bodiesOK := parsed
	noTables := true
	titlesUnique := true

	seenTitles := make(map[string]bool)

	for _, c := range p.Candidates {
		totalChars += len(c.Summary) + len(c.Body)

		if c.Title == "" || c.Summary == "" || c.Category == "" {
			fieldsOK = false
		}

		if !domain.ValidHorizon(domain.Horizon(c.Horizon)) {
			horizonsOK = false
		}

		if !inUnitRange(c.Confidence) || !inUnitRange(c.Probability) || !inUnitRange(c.Evidence) {
			rangesOK = false
		}

		if strings.TrimSpace(c.Body) == "" {
			bodiesOK = false
		}

		if parse.ContainsTable(c.Body) {
			noTables = false
		}

		key := strings.ToLower(strings.TrimSpace(c.Title))
		if seenTitles[key] {
			titlesUnique = false
		}

		seenTitles[key] = true
	}

	results := []checkResult{
		{CheckPayloadParsed, true, parsed, joinIssues(p.Issues)},
		{CheckNoTabularMarkup, true, noTables, IssueTabularMarkup},
		{CheckMinLength, true, totalChars >= g.cfg.MinJSONChars, fmt.Sprintf("content too short: %d chars, need %d", totalChars, g.cfg.MinJSONChars)},
		{CheckFieldsComplete, false, fieldsOK, "candidate missing title, summary or category"},
		{CheckHorizonValid, false, horizonsOK, "candidate horizon must be short, medium or long"},
		{CheckScoreRanges, false, rangesOK, "confidence, probability and evidence must be within 0.0-1.0"},
		{CheckBodyPresent, false, bodiesOK, "candidate body is empty"},
		{CheckUniqueTitles, false, titlesUnique, "duplicate candidate titles"},
	}

	return results
}

func buildReport(results []checkResult) domain.QualityReport {
	report := domain.QualityReport{
		Checks: make(map[string]bool, len(results)),
	}

	hardOK := true
	passedCount := 0

	for _, r := range results {
		report.Checks[r.name] = r.passed

		if r.passed {
			passedCount++
			continue
		}

		if r.hard {
			hardOK = false
		}

		if r.issue != "" {
			report.Issues = append(report.Issues, r.issue)
		}
	}

	report.Score = passedCount * 100 / len(results)
	report.Passed = report.Score >= PassScore && hardOK

	sort.Strings(report.Issues)

	return report
}

func joinIssues(issues []string) string {
	if len(issues) == 0 {
		return "payload could not be parsed"
	}

	return strings.Join(issues, "; ")
}

func inUnitRange(v float32) bool {
	return v >= 0 && v <= 1
}

func containsWorkedExample(md string) bool {
	lower := strings.ToLower(md)
	return strings.Contains(lower, "for example") || strings.Contains(lower, "for instance")
}
