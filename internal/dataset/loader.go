package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupported = errors.New("unsupported dataset file type")
	ErrEmpty       = errors.New("dataset has no header row")
	ErrTooManyRows = errors.New("dataset has too many rows")
)

// ParseError reports a dataset file that could not be decoded.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string { return "parsing " + e.Name + ": " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Format is a supported dataset encoding, chosen by file extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatSpreadsheet
)

// DetectFormat maps a file name to its format.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	case ".xlsx", ".xls":
		return FormatSpreadsheet
	}
	return FormatUnknown
}

// Loader parses uploads. MaxRows of 0 means unlimited.
type Loader struct {
	MaxRows int
}

// LoadFile opens path and parses it by extension.
func (l Loader) LoadFile(path string) (Dataset, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer fp.Close()
	return l.Load(filepath.Base(path), fp)
}

// Load parses r according to name's extension. The first row becomes the
// header; later rows with only blank cells are dropped.
func (l Loader) Load(name string, r io.Reader) (Dataset, error) {
	var (
		rows [][]string
		err  error
	)
	switch DetectFormat(name) {
	case FormatCSV:
		rows, err = readDelimited(r, ',')
	case FormatTSV:
		rows, err = readDelimited(r, '\t')
	case FormatSpreadsheet:
		rows, err = readSpreadsheet(r)
	default:
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err != nil {
		return Dataset{}, &ParseError{Name: name, Err: err}
	}
	ds, err := fromRows(rows)
	if err != nil {
		return Dataset{}, &ParseError{Name: name, Err: err}
	}
	if l.MaxRows > 0 && len(ds.Rows) > l.MaxRows {
		return Dataset{}, fmt.Errorf("%w: %d > %d", ErrTooManyRows, len(ds.Rows), l.MaxRows)
	}
	return ds, nil
}

func readDelimited(r io.Reader, comma rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr.ReadAll()
}

func readSpreadsheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheets")
	}
	return f.GetRows(sheet)
}

func fromRows(rows [][]string) (Dataset, error) {
	if len(rows) == 0 {
		return Dataset{}, ErrEmpty
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	out := Dataset{Columns: header, Rows: [][]string{}}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
