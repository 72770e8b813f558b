package gate

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/vistaceo/insight-engine/internal/process/parse"
)

type markdownStats struct {
	words            int
	sections         int
	links            int
	longestParagraph int
}

var headingLineRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// analyzeMarkdown walks the goldmark AST to collect the structural counts the
// soft checks need.
func analyzeMarkdown(md string) markdownStats {
	source := []byte(md)
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	stats := markdownStats{
		words: len(strings.Fields(md)),
	}

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 2 {
				stats.sections++
			}
		case *ast.Link, *ast.AutoLink:
			stats.links++
		case *ast.Paragraph:
			count := paragraphWordCount(node, source)
			if count > stats.longestParagraph {
				stats.longestParagraph = count
			}
		}

		return ast.WalkContinue, nil
	})

	return stats
}

func paragraphWordCount(node *ast.Paragraph, source []byte) int {
	var sb strings.Builder

	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(source))
		sb.WriteByte(' ')
	}

	return len(strings.Fields(sb.String()))
}

// headingsSentenceCased reports whether every heading already matches its
// sentence-cased form.
func headingsSentenceCased(md string) bool {
	for _, line := range strings.Split(md, "\n") {
		m := headingLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		if parse.SentenceCase(m[2]) != m[2] {
			return false
		}
	}

	return true
}

const (
	stuffingMinWords  = 50
	stuffingMinLen    = 5
	stuffingThreshold = 0.04
)

// keywordStuffed flags texts where a single significant word dominates.
func keywordStuffed(md string) bool {
	words := strings.Fields(strings.ToLower(md))
	if len(words) < stuffingMinWords {
		return false
	}

	counts := make(map[string]int)
	total := 0

	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]\"'`*#")
		if len(w) < stuffingMinLen {
			continue
		}

		counts[w]++
		total++
	}

	if total == 0 {
		return false
	}

	for _, c := range counts {
		if float64(c)/float64(total) > stuffingThreshold {
			return true
		}
	}

	return false
}
