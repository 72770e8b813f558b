package parse

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Repair descriptions, reported for observability, not gating.
const (
	repairStripDuplicateTitle = "stripped duplicate title heading"
	repairHeadingCase         = "normalized heading case"
	repairPromotedBoldLine    = "promoted bold line to heading"
)

// acronymAllowList holds words kept in their canonical casing when headings
// are normalized to sentence case.
var acronymAllowList = map[string]string{
	"ai":   "AI",
	"api":  "API",
	"b2b":  "B2B",
	"b2c":  "B2C",
	"cac":  "CAC",
	"ceo":  "CEO",
	"crm":  "CRM",
	"faq":  "FAQ",
	"gdpr": "GDPR",
	"kpi":  "KPI",
	"ltv":  "LTV",
	"roi":  "ROI",
	"saas": "SaaS",
	"seo":  "SEO",
	"sme":  "SME",
	"usa":  "USA",
	"vat":  "VAT",
}

var (
	headingRe    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)
	topHeadingRe = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	boldLineRe   = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
)

const boldPromotionMaxWords = 8

// RepairMarkdown applies the deterministic fix-up pass to model markdown.
// Running it twice yields the same result. requestedTitle, when non-empty,
// is the title the prompt asked for; a leading heading echoing it is
// stripped because the title renders separately.
func RepairMarkdown(md, requestedTitle string) (string, []string) {
	lines := strings.Split(md, "\n")
	applied := make([]string, 0, 2)

	lines, stripped := stripLeadingDuplicateTitle(lines, requestedTitle)
	if stripped {
		applied = append(applied, repairStripDuplicateTitle)
	}

	promoted := false

	for i, line := range lines {
		if m := boldLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			inner := strings.TrimSpace(m[1])
			if wordCount(inner) <= boldPromotionMaxWords && !strings.HasSuffix(inner, ".") {
				lines[i] = "## " + inner
				promoted = true
			}
		}
	}

	if promoted {
		applied = append(applied, repairPromotedBoldLine)
	}

	recased := false

	for i, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			fixed := SentenceCase(m[2])
			if fixed != m[2] {
				lines[i] = m[1] + " " + fixed
				recased = true
			}
		}
	}

	if recased {
		applied = append(applied, repairHeadingCase)
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), applied
}

// stripLeadingDuplicateTitle removes every leading heading that echoes the
// requested title (or, with no requested title, any leading H1 since the
// title is stored separately). Repeated echoes are all removed in one pass
// to keep the repair idempotent.
func stripLeadingDuplicateTitle(lines []string, requestedTitle string) ([]string, bool) {
	stripped := false

	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}

		m := topHeadingRe.FindStringSubmatch(trimmed)
		if m == nil {
			break
		}

		if requestedTitle != "" && !strings.EqualFold(strings.TrimSpace(m[1]), strings.TrimSpace(requestedTitle)) {
			break
		}

		lines = append(lines[:i], lines[i+1:]...)
		stripped = true
	}

	return lines, stripped
}

// SentenceCase lowercases a heading except for its first word and allow-listed
// acronyms, which keep their canonical form.
func SentenceCase(heading string) string {
	words := strings.Fields(heading)
	if len(words) == 0 {
		return heading
	}

	for i, word := range words {
		trailing := ""
		core := word

		if n := len(core); n > 0 && (core[n-1] == ':' || core[n-1] == '?' || core[n-1] == '!') {
			trailing = core[n-1:]
			core = core[:n-1]
		}

		if canonical, ok := acronymAllowList[strings.ToLower(core)]; ok {
			words[i] = canonical + trailing
			continue
		}

		if i == 0 {
			words[i] = capitalizeFirst(strings.ToLower(core)) + trailing
		} else {
			words[i] = strings.ToLower(core) + trailing
		}
	}

	return strings.Join(words, " ")
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// CountTopHeadings returns the number of "#" (H1) headings in md.
func CountTopHeadings(md string) int {
	count := 0

	for _, line := range strings.Split(md, "\n") {
		if topHeadingRe.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}

	return count
}
