// Package promptgen renders deterministic prompts from a ContextBundle and a
// task template. Rendering is pure: the same bundle, facets and prior issues
// always produce the same prompt text and digest.
package promptgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/vistaceo/insight-engine/internal/core/domain"
)

// Prompt is a rendered model request.
type Prompt struct {
	Text   string
	Digest string
}

// Request carries everything the renderer needs for one attempt.
type Request struct {
	Bundle      domain.ContextBundle
	Kind        domain.ArtifactKind
	Facets      domain.Facets
	PriorIssues []string
}

// Renderer renders prompts within a character budget. When a bundle exceeds
// the budget, oldest history entries are dropped first, then playbook detail;
// profile facts are never trimmed.
type Renderer struct {
	budgetChars  int
	cautionBelow int
}

// New creates a Renderer. cautionBelow is the completeness score under which
// the conservative-output block is added.
func New(budgetChars, cautionBelow int) *Renderer {
	return &Renderer{
		budgetChars:  budgetChars,
		cautionBelow: cautionBelow,
	}
}

// Render produces the prompt for one attempt.
func (r *Renderer) Render(req Request) (Prompt, error) {
	template, err := templateFor(req.Kind)
	if err != nil {
		return Prompt{}, err
	}

	bundle := req.Bundle

	text := r.substitute(template, bundle, req)

	// Trim oldest history first until the prompt fits.
	for r.budgetChars > 0 && len(text) > r.budgetChars && len(bundle.History) > 0 {
		bundle.History = bundle.History[:len(bundle.History)-1]
		text = r.substitute(template, bundle, req)
	}

	// Then compact the playbook before touching anything else.
	if r.budgetChars > 0 && len(text) > r.budgetChars {
		bundle.Playbook = summarizePlaybook(bundle.Playbook)
		text = r.substitute(template, bundle, req)
	}

	sum := sha256.Sum256([]byte(text))

	return Prompt{Text: text, Digest: hex.EncodeToString(sum[:])}, nil
}

func templateFor(kind domain.ArtifactKind) (string, error) {
	switch kind {
	case domain.KindPrediction:
		return predictionTemplate, nil
	case domain.KindBlogPost:
		return blogPostTemplate, nil
	case domain.KindMissionPlan:
		return missionPlanTemplate, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

func (r *Renderer) substitute(template string, bundle domain.ContextBundle, req Request) string {
	caution := ""
	if bundle.QualityHints.Completeness < r.cautionBelow {
		caution = cautionBlock
	}

	text := strings.ReplaceAll(template, placeholderFacets, renderFacets(req.Facets))
	text = strings.ReplaceAll(text, placeholderCaution, caution)
	text = strings.ReplaceAll(text, placeholderContext, renderContext(bundle))
	text = strings.ReplaceAll(text, placeholderIssues, renderIssues(req.PriorIssues))

	return text
}

func renderFacets(f domain.Facets) string {
	var parts []string

	if len(f.Horizons) > 0 {
		horizons := make([]string, len(f.Horizons))
		for i, h := range f.Horizons {
			horizons[i] = string(h)
		}

		parts = append(parts, "horizons: "+strings.Join(horizons, ", "))
	}

	if len(f.Categories) > 0 {
		parts = append(parts, "categories: "+strings.Join(f.Categories, ", "))
	}

	if len(parts) == 0 {
		return "all horizons and categories"
	}

	return strings.Join(parts, "; ")
}

// renderContext serializes the bundle. Map keys are sorted so rendering stays
// deterministic.
func renderContext(bundle domain.ContextBundle) string {
	var sb strings.Builder

	p := bundle.Profile

	sb.WriteString("Subject: " + orUnknown(p.Name) + "\n")
	sb.WriteString("Category: " + orUnknown(p.Category) + "\n")
	sb.WriteString("Locale: " + orUnknown(p.Locale) + "\n")
	sb.WriteString("Currency: " + orUnknown(p.Currency) + "\n")

	writeSortedMap(&sb, "Scale", p.Scale)
	writeSortedMap(&sb, "Facts", p.Facts)

	if bundle.Playbook.Category != "" {
		sb.WriteString("\nSector playbook (" + bundle.Playbook.Category + "):\n")
		writeList(&sb, "Typical drivers", bundle.Playbook.Drivers)
		writeList(&sb, "Typical risks", bundle.Playbook.Risks)
		writeList(&sb, "Seasonal factors", bundle.Playbook.SeasonalFactors)

		if bundle.Playbook.Voice != "" {
			sb.WriteString("Voice: " + bundle.Playbook.Voice + "\n")
		}
	} else {
		sb.WriteString("\nSector playbook: unknown\n")
	}

	if len(bundle.History) > 0 {
		sb.WriteString("\nPrior artifacts (most recent first, do not repeat):\n")

		for _, h := range bundle.History {
			sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", h.Kind, h.Title, h.Summary))
		}
	} else {
		sb.WriteString("\nPrior artifacts: none\n")
	}

	return sb.String()
}

// renderIssues builds the retry constraint block from all previously reported
// issues, verbatim. Each retry is strictly more constrained than the last.
func renderIssues(issues []string) string {
	if len(issues) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(issuesHeader)

	for _, issue := range issues {
		sb.WriteString("- " + issue + "\n")
	}

	return sb.String()
}

func writeSortedMap(sb *strings.Builder, label string, m map[string]string) {
	if len(m) == 0 {
		sb.WriteString(label + ": unknown\n")
		return
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	sb.WriteString(label + ":\n")

	for _, k := range keys {
		sb.WriteString("  " + k + ": " + m[k] + "\n")
	}
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}

	sb.WriteString(label + ": " + strings.Join(items, "; ") + "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

const summarizedListLimit = 3

// summarizePlaybook keeps only the leading entries of each playbook list.
func summarizePlaybook(pb domain.Playbook) domain.Playbook {
	trim := func(items []string) []string {
		if len(items) <= summarizedListLimit {
			return items
		}

		return items[:summarizedListLimit]
	}

	pb.Drivers = trim(pb.Drivers)
	pb.Risks = trim(pb.Risks)
	pb.SeasonalFactors = trim(pb.SeasonalFactors)

	return pb
}
