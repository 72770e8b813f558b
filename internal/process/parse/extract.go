// Package parse turns raw model text into a structurally valid candidate
// artifact. Extraction tolerates chatty responses; the repair pass is
// deterministic and idempotent. Parse failures become quality issues, never
// thrown errors, so the retry loop treats them like any other failed check.
package parse

import (
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\n(.*?)```")

// ExtractPayload locates the generated payload inside free-form model text.
// A fenced code block wins if present; otherwise the full text is returned.
func ExtractPayload(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}

	return strings.TrimSpace(text)
}

// ExtractJSON narrows text to the outermost JSON object or array, tolerating
// preambles and trailing chatter.
func ExtractJSON(text string) string {
	// Prefer an array: the prediction contract returns one.
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	start = strings.Index(text, "{")
	end = strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
