package handlers

import (
	"fmt"
	"time"

	"carehome-go/internal/models"

	"github.com/xuri/excelize/v2"
)

const alertSheet = "Alerts"

var alertExportHeader = []string{
	"ID", "Resident ID", "Team ID", "Type", "Severity", "Title", "Message",
	"Period", "Created", "Resolved", "Resolved At",
}

var alertColumnWidths = []float64{8, 12, 10, 22, 10, 36, 60, 18, 20, 10, 20}

// buildAlertWorkbook renders alerts as an xlsx file, timestamps in loc.
func buildAlertWorkbook(list []models.Alert, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", alertSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(alertExportHeader))
	for i, h := range alertExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(alertSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(alertExportHeader), 1)
	if err := f.SetCellStyle(alertSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, width := range alertColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(alertSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, a := range list {
		resolvedAt := ""
		if a.ResolvedAt != nil {
			resolvedAt = a.ResolvedAt.In(loc).Format("2006-01-02 15:04")
		}
		row := []any{
			a.ID, a.ResidentID, a.TeamID, a.AlertType, a.Severity, a.Title, a.Message,
			a.DedupKey, a.CreatedAt.In(loc).Format("2006-01-02 15:04"), a.IsResolved, resolvedAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(alertSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
