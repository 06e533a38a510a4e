// Package export writes result tables to disk.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/ensim/internal/table"
)

// WriteCSV writes t with a header row. Values are formatted with the
// shortest representation that round-trips, so integer-valued columns (step,
// id, ensemble) print without a decimal point.
func WriteCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(t.Columns()); err != nil {
		return err
	}

	record := make([]string, len(t.Columns()))
	for r := 0; r < t.Rows(); r++ {
		for c, v := range t.Row(r) {
			record[c] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to a file, creating or truncating it.
func SaveCSV(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
