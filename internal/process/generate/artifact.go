package generate

import (
	"strings"

	"github.com/vistaceo/insight-engine/internal/core/domain"
	"github.com/vistaceo/insight-engine/internal/process/audit"
	"github.com/vistaceo/insight-engine/internal/process/parse"
)

const summaryWordLimit = 60

// buildArtifacts maps a gated payload onto artifact rows. Markdown kinds
// yield exactly one artifact; candidate kinds yield one per candidate.
func buildArtifacts(req Request, bundle domain.ContextBundle, payload parse.Payload) []domain.Artifact {
	if payload.Kind == domain.KindBlogPost {
		title := req.Title
		if title == "" {
			title = firstHeading(payload.Markdown)
		}

		summary := leadingSummary(payload.Markdown)

		return []domain.Artifact{{
			SubjectID:   req.SubjectID,
			Kind:        payload.Kind,
			Title:       title,
			Summary:     summary,
			Body:        payload.Markdown,
			Category:    bundle.Profile.Category,
			Fingerprint: audit.Fingerprint(title, summary),
		}}
	}

	artifacts := make([]domain.Artifact, 0, len(payload.Candidates))

	for _, c := range payload.Candidates {
		category := c.Category
		if category == "" {
			category = bundle.Profile.Category
		}

		artifacts = append(artifacts, domain.Artifact{
			SubjectID:   req.SubjectID,
			Kind:        payload.Kind,
			Title:       c.Title,
			Summary:     c.Summary,
			Body:        c.Body,
			Category:    category,
			Horizon:     domain.Horizon(c.Horizon),
			Confidence:  c.Confidence,
			Probability: c.Probability,
			Evidence:    c.Evidence,
			Fingerprint: audit.Fingerprint(c.Title, c.Summary),
		})
	}

	return artifacts
}

// firstHeading returns the text of the first "##" section, used as a title
// fallback when the request did not name one.
func firstHeading(md string) string {
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
		}
	}

	return "Untitled"
}

// leadingSummary takes the first non-heading paragraph, capped by word count.
func leadingSummary(md string) string {
	for _, block := range strings.Split(md, "\n\n") {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		words := strings.Fields(trimmed)
		if len(words) > summaryWordLimit {
			words = words[:summaryWordLimit]
		}

		return strings.Join(words, " ")
	}

	return ""
}
