package dashboard

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

var ErrNoHeader = errors.New("csv file has no header row")

// Table is an uploaded csv held in memory.  Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ParseCSV reads a csv with a header row.  Short rows are padded and long rows cut to the
// header width.
func ParseCSV(body io.Reader) (Table, error) {
	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrNoHeader
	}
	if err != nil {
		return Table{}, err
	}
	columns := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[i] = strings.TrimSpace(name)
	}

	table := Table{Columns: columns, Rows: [][]string{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, err
		}
		row := make([]string, len(columns))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ColumnIndex returns the position of the named column.
func (t Table) ColumnIndex(name string) (int, bool) {
	for i, column := range t.Columns {
		if column == name {
			return i, true
		}
	}
	return -1, false
}
