package web

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/umputun/jobbridge/app/pipeline"
)

const (
	matchesSheet  = "Matches"
	documentSheet = "Document"
)

// MatchesXLSX makes excel workbook with ranked jobs and extracted document details of the analysis
func MatchesXLSX(a pipeline.Analysis) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", matchesSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(documentSheet); err != nil {
		return nil, fmt.Errorf("failed to create document sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeMatchesSheet(f, a, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to write matches sheet: %w", err)
	}
	if err := writeDocumentSheet(f, a, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to write document sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// writeMatchesSheet writes job table, score column only for scored ranking
func writeMatchesSheet(f *excelize.File, a pipeline.Analysis, headerStyle int) error {
	header := []any{"Rank", "Role", "Required skills", "Employer", "Location"}
	if a.Ranking.Scored {
		header = append(header, "Score")
	}
	if err := f.SetSheetRow(matchesSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(matchesSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, j := range a.Ranking.Jobs {
		row := []any{i + 1, j.Role, j.RequiredSkills, j.Employer, j.Location}
		if a.Ranking.Scored {
			row = append(row, j.Score)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(matchesSheet, cell, &row); err != nil {
			return err
		}
	}

	widths := map[string]float64{"A": 8, "B": 28, "C": 40, "D": 24, "E": 20, "F": 10}
	for col, w := range widths {
		if err := f.SetColWidth(matchesSheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

// writeDocumentSheet writes analysis summary as label/value pairs
func writeDocumentSheet(f *excelize.File, a pipeline.Analysis, headerStyle int) error {
	rows := [][]any{
		{"Field", "Value"},
		{"Analysis", a.ID},
		{"Created", a.CreatedAt.Format("2006-01-02 15:04:05 MST")},
		{"File", a.FileName},
		{"Text source", a.Extraction.Source.String()},
		{"OCR engine", a.Extraction.Engine},
		{"Detected skills", strings.Join(a.Skills, ", ")},
		{"Embedder", a.Ranking.Embedder},
		{"Warning", strings.TrimSpace(a.Extraction.Warning + " " + a.Ranking.Warning)},
		{"Extracted text", a.Extraction.Text},
	}
	for i, r := range rows {
		if err := f.SetSheetRow(documentSheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(documentSheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(documentSheet, "A", "A", 18); err != nil {
		return err
	}
	return f.SetColWidth(documentSheet, "B", "B", 80)
}
