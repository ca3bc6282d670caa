package quiz

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// AttemptsSheet is the worksheet name used by ExportAttempts.
const AttemptsSheet = "Attempts"

var attemptHeader = []any{"Completed At", "Topic", "Difficulty", "Score", "Total", "Percent", "Result"}

// ExportAttempts writes attempts to w as an .xlsx workbook, one row per
// attempt under a header row.
func ExportAttempts(w io.Writer, attempts []Attempt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AttemptsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(AttemptsSheet, "A1", &attemptHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, a := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		result := "Keep studying"
		if a.Total > 0 && float64(a.Score)/float64(a.Total) > PassMark {
			result = "Ready for the road"
		}
		row := []any{
			a.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
			a.Topic,
			a.Difficulty,
			a.Score,
			a.Total,
			fmt.Sprintf("%.0f%%", a.Percent()),
			result,
		}
		if err := f.SetSheetRow(AttemptsSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
