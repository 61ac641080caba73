package report

import (
	"fmt"
	"strings"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const (
	FormatXLSX     = "xlsx"
	FormatHTML     = "html"
	FormatMarkdown = "md"
)

// Rendered is an analysis serialized for download.
type Rendered struct {
	ContentType string
	Filename    string
	Body        []byte
}

func Formats() []string {
	return []string{FormatXLSX, FormatHTML, FormatMarkdown}
}

func Render(format string, analysis *domain.Analysis) (Rendered, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatXLSX:
		body, err = XLSX(analysis)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		body, err = HTML(analysis)
		contentType = "text/html; charset=utf-8"
	case FormatMarkdown:
		body = Markdown(analysis)
		contentType = "text/markdown; charset=utf-8"
	default:
		return Rendered{}, domain.WrapError(domain.ErrInvalidInput, "render report",
			fmt.Errorf("unsupported format %q, expected one of %s", format, strings.Join(Formats(), ", ")))
	}
	if err != nil {
		return Rendered{}, fmt.Errorf("render %s report: %w", format, err)
	}
	return Rendered{
		ContentType: contentType,
		Filename:    fmt.Sprintf("analysis-%s.%s", analysis.ID, format),
		Body:        body,
	}, nil
}

func riskLabel(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return "High"
	case domain.RiskMedium:
		return "Medium"
	case domain.RiskLow:
		return "Low"
	default:
		return string(level)
	}
}
