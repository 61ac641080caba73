package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/contract-clause-checker/internal/core/domain"
)

const (
	findingsSheet = "Findings"
	summarySheet  = "Summary"
)

var (
	findingHeaders = []string{"#", "Risk Level", "Clause", "Issue Detected", "Explanation", "Suggested Alternative", "Chunk"}
	findingWidths  = []float64{5, 12, 60, 40, 60, 60, 8}
	riskFills      = map[domain.RiskLevel]string{
		domain.RiskHigh:   "#F8CBAD",
		domain.RiskMedium: "#FFE699",
		domain.RiskLow:    "#C6EFCE",
	}
)

// XLSX renders the findings as a workbook with a findings and a summary sheet.
func XLSX(analysis *domain.Analysis) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", findingsSheet); err != nil {
		return nil, err
	}
	if err := writeFindings(f, analysis.AnalysisResults); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	if err := writeSummary(f, analysis); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFindings(f *excelize.File, findings []domain.Finding) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	riskStyles := make(map[domain.RiskLevel]int, len(riskFills))
	for level, color := range riskFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "top"},
		})
		if err != nil {
			return err
		}
		riskStyles[level] = id
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	for i, header := range findingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(findingsSheet, cell, header); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(findingsSheet, col, col, findingWidths[i]); err != nil {
			return err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(findingHeaders), 1)
	if err := f.SetCellStyle(findingsSheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for i, finding := range findings {
		row := i + 2
		values := []any{
			i + 1,
			riskLabel(finding.RiskLevel),
			finding.ClauseText,
			finding.IssueDetected,
			finding.Explanation,
			finding.SuggestedAlternative,
			finding.SourceChunkIndex,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(findingsSheet, cell, value); err != nil {
				return err
			}
		}

		first, _ := excelize.CoordinatesToCellName(3, row)
		last, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(findingsSheet, first, last, wrapStyle); err != nil {
			return err
		}
		if style, ok := riskStyles[finding.RiskLevel]; ok {
			cell, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellStyle(findingsSheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSummary(f *excelize.File, analysis *domain.Analysis) error {
	summary := analysis.RiskSummary()
	rows := [][2]any{
		{"Analysis ID", analysis.ID},
		{"Filename", analysis.Filename},
		{"Processed At", analysis.ProcessedAt.UTC().Format(time.RFC3339)},
		{"Total Findings", summary.Total()},
		{"High", summary.High},
		{"Medium", summary.Medium},
		{"Low", summary.Low},
	}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			if err := f.SetCellValue(summarySheet, cell, value); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}
