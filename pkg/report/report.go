// Package report renders decoded rows for people and spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ACascarino/pat/pkg/sss"
)

// csvHeader is the long-format column set: one output line per decoded field,
// so spreadsheets can pivot without knowing any sub-record layout up front.
var csvHeader = []string{"record", "test", "code", "label", "field", "value"}

// WriteCSV drains the iterator into long-format CSV. Sub-records that carry
// no fields (overall pass/fail markers) still emit one line with an empty
// field column, so every decoded row is visible in the output.
func WriteCSV(w io.Writer, rows sss.RowIterator) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for rows.Next() {
		row := rows.Row()
		base := []string{
			strconv.Itoa(row.Record),
			testColumn(row),
			fmt.Sprintf("%02X", row.Code),
			row.Label,
		}

		names := row.Fields.Names()
		if len(names) == 0 {
			if err := cw.Write(append(base, "", "")); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
			continue
		}
		for _, name := range names {
			v, _ := row.Fields.Get(name)
			if err := cw.Write(append(base[:4:4], name, v.String())); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// WriteText drains the iterator as one human-readable line per row, the form
// the dump command prints.
func WriteText(w io.Writer, rows sss.RowIterator) error {
	for rows.Next() {
		row := rows.Row()
		if row.HasTest() {
			fmt.Fprintf(w, "record %d test %d  %s  %s\n", row.Record, row.Test, row.Label, row.Fields)
		} else {
			fmt.Fprintf(w, "record %d  %s  %s\n", row.Record, row.Label, row.Fields)
		}
	}
	return rows.Err()
}

func testColumn(row *sss.Row) string {
	if !row.HasTest() {
		return ""
	}
	return strconv.Itoa(row.Test)
}
