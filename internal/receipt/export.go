package receipt

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Receipts"

var exportColumns = []string{
	"ID", "Merchant", "Receipt No", "Date", "Amount (RM)", "Payment Method", "Items", "Uploaded",
}

// writeWorkbook renders receipts as a single-sheet XLSX file
func writeWorkbook(w io.Writer, receipts []*Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for col, title := range exportColumns {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}

	for i, r := range receipts {
		row := i + 2
		values := []any{
			r.ID,
			r.Merchant,
			r.Number,
			r.Date,
			float64(r.Amount) / 100,
			r.PaymentMethod,
			r.ItemCount,
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(exportSheet, cell, value); err != nil {
		return fmt.Errorf("setting %s: %w", cell, err)
	}
	return nil
}
