package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotImage rejects template uploads that are not a supported image.
	ErrNotImage = errors.New("template must be a .jpg, .jpeg, .png or .webp image")
	ErrDecode   = errors.New("template could not be decoded")
	ErrDownload = errors.New("template could not be downloaded")
)

var templateExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

// Template is the decoded certificate background. Its natural size is
// the coordinate space of every box.
type Template struct {
	Name  string      `json:"name"`
	Image image.Image `json:"-"`
}

func (t Template) Width() int  { return t.Image.Bounds().Dx() }
func (t Template) Height() int { return t.Image.Bounds().Dy() }

// CheckTemplate validates a file name and declared content type. An empty
// content type is sniffed from head.
func CheckTemplate(name, contentType string, head []byte) error {
	if !templateExts[strings.ToLower(filepath.Ext(name))] {
		return ErrNotImage
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return ErrNotImage
	}
	return nil
}

// DecodeTemplate validates and decodes an uploaded template.
func DecodeTemplate(name, contentType string, r io.Reader) (Template, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Template{}, err
	}
	if err := CheckTemplate(name, contentType, body); err != nil {
		return Template{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(body), imaging.AutoOrientation(true))
	if err != nil {
		return Template{}, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	if img.Bounds().Empty() {
		return Template{}, fmt.Errorf("%w: %s: empty image", ErrDecode, name)
	}
	return Template{Name: name, Image: img}, nil
}

// LoadTemplateFile decodes a template from disk.
func LoadTemplateFile(path string) (Template, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	return DecodeTemplate(filepath.Base(path), "", bytes.NewReader(body))
}
