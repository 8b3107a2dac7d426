package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"TestVaultAlerts/internal/domain"
)

const (
	// FileName is the workbook written next to the day's results.
	FileName  = "summary.xlsx"
	sheetName = "Results"
)

var headers = []string{
	"Client",
	"Collection Date",
	"Download Date",
	"Verdict",
	"Method",
	"Keyword",
	"Note",
	"File",
}

// WriteWorkbook writes one row per classified result into dir/summary.xlsx and returns its path.
func WriteWorkbook(dir string, rows []domain.ClassifiedResult, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return "", fmt.Errorf("new sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return "", fmt.Errorf("drop default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return "", fmt.Errorf("sheet index: %w", err)
	}
	f.SetActiveSheet(idx)

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, r.Result.ClientName)
		write(2, r.Result.CollectionDate)
		write(3, r.Result.DownloadDate)
		write(4, r.Classification.Verdict.String())
		write(5, string(r.Classification.Method))
		write(6, r.Classification.Keyword)
		write(7, r.Classification.Reason)
		write(8, filepath.Base(r.Result.Path))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "B", "C", 16)
	_ = f.SetColWidth(sheetName, "D", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "F", 22)
	_ = f.SetColWidth(sheetName, "G", "G", 40)
	_ = f.SetColWidth(sheetName, "H", "H", 20)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("summary workbook written", "path", path, "rows", len(rows))
	return path, nil
}
