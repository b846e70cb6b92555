// Package export writes run results as CSV or XLSX for review and for
// import into practice-management tools.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/taxkit/tax-document-renamer/internal/models"
)

var columns = []string{
	"元ファイル", "ページ", "分類コード", "元コード", "書類名",
	"期間", "期間ソース", "確定ファイル名", "信頼度", "状態", "備考",
}

// WriteCSV writes the decision records to path. The file starts with a
// UTF-8 BOM so Excel on Japanese Windows opens it readably.
func WriteCSV(path string, records []models.DecisionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(row(rec)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteXLSX writes the decision records as a single-sheet workbook.
func WriteXLSX(path string, records []models.DecisionRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, name := range columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}

	for i, rec := range records {
		for col, value := range row(rec) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("record cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set record: %w", err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func row(rec models.DecisionRecord) []string {
	return []string{
		rec.Source,
		fmt.Sprintf("%d", rec.Ordinal),
		rec.FinalCode,
		rec.OriginalCode,
		rec.Label,
		rec.Period,
		string(rec.PeriodSource),
		rec.FinalName,
		fmt.Sprintf("%.2f", rec.Confidence),
		status(rec),
		note(rec),
	}
}

func status(rec models.DecisionRecord) string {
	switch {
	case rec.Failed:
		return "失敗"
	case rec.Skipped:
		return "スキップ"
	default:
		return "完了"
	}
}

func note(rec models.DecisionRecord) string {
	var parts []string
	if rec.SkipReason != "" {
		parts = append(parts, rec.SkipReason)
	}
	if rec.Error != "" {
		parts = append(parts, rec.Error)
	}
	if !rec.CreatedAt.IsZero() {
		parts = append(parts, rec.CreatedAt.Format(time.RFC3339))
	}
	return strings.Join(parts, "; ")
}
