package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Markdown pipe-table separator row, e.g. "|---|:---:|".
var pipeTableSeparatorRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

// ContainsTable reports whether text embeds tabular markup, either a
// Markdown pipe table or an HTML <table> element. Tabular layout is a
// hard-blocking structural violation for this pipeline.
func ContainsTable(text string) bool {
	return containsPipeTable(text) || containsHTMLTable(text)
}

func containsPipeTable(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if pipeTableSeparatorRe.MatchString(line) {
			return true
		}
	}

	return false
}

func containsHTMLTable(text string) bool {
	if !strings.Contains(strings.ToLower(text), "<table") {
		return false
	}

	tokenizer := html.NewTokenizer(strings.NewReader(text))

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return false
		}

		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			name, _ := tokenizer.TagName()
			if strings.EqualFold(string(name), "table") {
				return true
			}
		}
	}
}
