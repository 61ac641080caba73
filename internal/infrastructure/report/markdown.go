package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

var (
	markdownCellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")
	inlineReplacer       = strings.NewReplacer("<", "&lt;", ">", "&gt;", "`", "\\`", "*", "\\*", "_", "\\_")
)

// Markdown renders a summary followed by a GFM table of findings.
func Markdown(analysis *domain.Analysis) []byte {
	var b bytes.Buffer
	summary := analysis.RiskSummary()

	fmt.Fprintf(&b, "# Contract analysis: %s\n\n", escapeInline(analysis.Filename))
	fmt.Fprintf(&b, "- Analysis ID: `%s`\n", analysis.ID)
	fmt.Fprintf(&b, "- Processed at: %s\n", analysis.ProcessedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- Findings: %d (high %d, medium %d, low %d)\n\n", summary.Total(), summary.High, summary.Medium, summary.Low)

	if len(analysis.AnalysisResults) == 0 {
		b.WriteString("No problematic clauses were found.\n")
		return b.Bytes()
	}

	b.WriteString("| # | Risk | Clause | Issue | Explanation | Suggested alternative |\n")
	b.WriteString("|---|------|--------|-------|-------------|-----------------------|\n")
	for i, f := range analysis.AnalysisResults {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			i+1,
			riskLabel(f.RiskLevel),
			markdownCell(f.ClauseText),
			markdownCell(f.IssueDetected),
			markdownCell(f.Explanation),
			markdownCell(f.SuggestedAlternative),
		)
	}
	return b.Bytes()
}

// HTML renders the Markdown report through goldmark. Raw HTML coming from
// model output is not passed through.
func HTML(analysis *domain.Analysis) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert(Markdown(analysis), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>Contract analysis %s</title>\n", analysis.ID)
	page.WriteString("<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}" +
		"th,td{border:1px solid #ccc;padding:.4rem;vertical-align:top}</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

func markdownCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return markdownCellReplacer.Replace(escapeInline(s))
}

func escapeInline(s string) string {
	return inlineReplacer.Replace(s)
}
