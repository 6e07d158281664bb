// Copyright (C) 2016, Heiko Koehler

package history

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName of the exported workbook
const SheetName = "history"

// WriteXLSX exports the table as a workbook with a single sheet. Times are
// written as wall clock in loc, null cells stay empty.
func WriteXLSX(w io.Writer, tbl *Table, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	if err := setCell(f, 1, 1, "timestamp_utc"); err != nil {
		return err
	}
	for i, col := range tbl.Columns {
		if err := setCell(f, i+2, 1, col.Name); err != nil {
			return err
		}
	}

	for r, sample := range tbl.Samples {
		row := r + 2
		local := sample.Time.In(loc)
		wall := time.Date(local.Year(), local.Month(), local.Day(),
			local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), time.UTC)
		if err := setCell(f, 1, row, wall); err != nil {
			return err
		}
		for i, v := range sample.Values {
			if !v.Valid {
				continue
			}
			if err := setCell(f, i+2, row, v.Float64); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 20); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(SheetName, cell, value)
}
