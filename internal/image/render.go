// Package imagepkg decodes certificate templates and renders one
// certificate per data row.
package imagepkg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/dataset"
)

const DefaultFontRatio = 0.6

// ColumnResolver answers which column feeds a box.
type ColumnResolver interface {
	ColumnFor(boxID string) (string, bool)
}

type Options struct {
	// FontPath is a TTF/OTF file; empty selects the bundled Go Regular.
	FontPath string
	// FontRatio is the font size as a fraction of box height.
	FontRatio float64
	// TextColor is a #RRGGBB or #RRGGBBAA hex string.
	TextColor string
}

// Renderer draws mapped cell values onto a template. It is safe for
// concurrent use; font faces are created per call.
type Renderer struct {
	font  *opentype.Font
	ratio float64
	color color.Color
}

func NewRenderer(opts Options) (*Renderer, error) {
	data := goregular.TTF
	if opts.FontPath != "" {
		b, err := os.ReadFile(opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	ratio := opts.FontRatio
	if ratio <= 0 {
		ratio = DefaultFontRatio
	}
	col := color.Color(color.Black)
	if opts.TextColor != "" {
		c, err := ParseHexColor(opts.TextColor)
		if err != nil {
			return nil, fmt.Errorf("parse text color: %w", err)
		}
		col = c
	}
	return &Renderer{font: f, ratio: ratio, color: col}, nil
}

// Render composites one data row onto the template at its natural size.
// Boxes without a mapped column are skipped; missing cells render as "".
func (r *Renderer) Render(tpl image.Image, list []boxes.Box, cols ColumnResolver, row, headers []string) (*image.NRGBA, error) {
	canvas := imaging.Clone(tpl)
	faces := map[float64]font.Face{}
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for _, b := range list {
		col, ok := cols.ColumnFor(b.ID)
		if !ok {
			continue
		}
		value := dataset.Cell(row, dataset.IndexOf(headers, col))
		switch b.Kind {
		case boxes.KindQR:
			var err error
			if canvas, err = drawQR(canvas, b, value); err != nil {
				return nil, fmt.Errorf("box %s: %w", b.ID, err)
			}
		default:
			size := math.Round(b.Height*r.ratio*4) / 4
			face, ok := faces[size]
			if !ok {
				f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
					Size:    size,
					DPI:     72,
					Hinting: font.HintingNone,
				})
				if err != nil {
					return nil, fmt.Errorf("create font face: %w", err)
				}
				faces[size] = f
				face = f
			}
			r.drawCentered(canvas, face, b, value)
		}
	}
	return canvas, nil
}

// drawCentered centers the ink bounds of text on the box center.
func (r *Renderer) drawCentered(dst draw.Image, face font.Face, b boxes.Box, text string) {
	if text == "" {
		return
	}
	bounds, _ := font.BoundString(face, text)
	c := b.Rect().Center()
	dot := fixed.Point26_6{
		X: toFixed(c.X) - (bounds.Min.X+bounds.Max.X)/2,
		Y: toFixed(c.Y) - (bounds.Min.Y+bounds.Max.Y)/2,
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(r.color),
		Face: face,
		Dot:  dot,
	}
	d.DrawString(text)
}

func drawQR(dst *image.NRGBA, b boxes.Box, value string) (*image.NRGBA, error) {
	if value == "" {
		return dst, nil
	}
	size := int(math.Min(b.Width, b.Height))
	q, err := GenerateQRImage(value, size)
	if err != nil {
		return nil, err
	}
	c := b.Rect().Center()
	at := image.Pt(int(math.Round(c.X))-size/2, int(math.Round(c.Y))-size/2)
	return imaging.Overlay(dst, q, at, 1.0), nil
}

// Thumbnail downsizes img to width, keeping aspect ratio. Images already
// narrower than width are returned unchanged.
func Thumbnail(img image.Image, width int) image.Image {
	if width <= 0 || width >= img.Bounds().Dx() {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// PNGBytes is EncodePNG into a fresh buffer.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseHexColor parses #RGB, #RRGGBB or #RRGGBBAA.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
