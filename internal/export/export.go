// Package export renders every dataset row and packs the results into a
// zip archive.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/dataset"
	imagepkg "github.com/youruser/certgen/internal/image"
)

// ErrPrecondition wraps every reason an export refuses to start.
var ErrPrecondition = errors.New("export precondition failed")

var ErrNoBoxes = fmt.Errorf("%w: add at least one text box", ErrPrecondition)

// UnmappedBoxesError lists boxes that have no column mapped to them.
type UnmappedBoxesError struct {
	IDs []string
}

func (e *UnmappedBoxesError) Error() string {
	return fmt.Sprintf("%s: map a column to every box (%d unmapped: %s)",
		ErrPrecondition, len(e.IDs), strings.Join(e.IDs, ", "))
}

func (e *UnmappedBoxesError) Unwrap() error { return ErrPrecondition }

// RowRenderer draws one certificate.
type RowRenderer interface {
	Render(tpl image.Image, list []boxes.Box, cols imagepkg.ColumnResolver, row, headers []string) (*image.NRGBA, error)
}

// FileName is the archive entry name for the 0-based row i.
func FileName(i int) string {
	return fmt.Sprintf("certificate-%d.png", i+1)
}

// Validate checks that there is at least one box and every box is mapped.
// Unused columns are fine.
func Validate(list []boxes.Box, cols imagepkg.ColumnResolver) error {
	if len(list) == 0 {
		return ErrNoBoxes
	}
	var missing []string
	for _, b := range list {
		if _, ok := cols.ColumnFor(b.ID); !ok {
			missing = append(missing, b.ID)
		}
	}
	if len(missing) > 0 {
		return &UnmappedBoxesError{IDs: missing}
	}
	return nil
}

type Exporter struct {
	Renderer RowRenderer
	// Progress, when set, is called after each row is written.
	Progress func(done, total int)
}

// Export renders every row in order and returns the zip archive bytes.
// Any failure, including ctx cancellation, returns no archive.
func (e *Exporter) Export(ctx context.Context, tpl image.Image, list []boxes.Box, cols imagepkg.ColumnResolver, ds dataset.Dataset) ([]byte, error) {
	if err := Validate(list, cols); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := e.Renderer.Render(tpl, list, cols, row, ds.Columns)
		if err != nil {
			return nil, fmt.Errorf("render row %d: %w", i+1, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: FileName(i), Method: zip.Store})
		if err != nil {
			return nil, err
		}
		if err := imagepkg.EncodePNG(w, img); err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i+1, err)
		}
		if e.Progress != nil {
			e.Progress(i+1, len(ds.Rows))
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
