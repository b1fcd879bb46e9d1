// Package dataset loads the tabular data that fills certificate boxes.
package dataset

// Dataset is a header row plus data rows. Column headers are used as
// column ids; duplicates are allowed and resolve to the first index.
type Dataset struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Index returns the position of column in the header row, or -1.
func (d Dataset) Index(column string) int {
	return IndexOf(d.Columns, column)
}

// IndexOf returns the first index of column in headers, or -1.
func IndexOf(headers []string, column string) int {
	for i, h := range headers {
		if h == column {
			return i
		}
	}
	return -1
}

// Cell returns row[i], or "" when i is out of range.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func (d Dataset) Len() int { return len(d.Rows) }
