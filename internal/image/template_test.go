package imagepkg

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	b, err := PNGBytes(imaging.New(w, h, color.NRGBA{R: 200, A: 255}))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDecodeTemplate(t *testing.T) {
	body := pngFixture(t, 320, 240)
	tpl, err := DecodeTemplate("cert.PNG", "image/png", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeTemplate: %v", err)
	}
	if tpl.Width() != 320 || tpl.Height() != 240 {
		t.Errorf("size = %dx%d", tpl.Width(), tpl.Height())
	}
}

func TestDecodeTemplateRejects(t *testing.T) {
	body := pngFixture(t, 10, 10)
	tests := []struct {
		name, file, ctype string
		body              []byte
	}{
		{name: "bad extension", file: "cert.gif", ctype: "image/gif", body: body},
		{name: "non-image content type", file: "cert.png", ctype: "text/plain", body: body},
		{name: "sniffed text", file: "cert.png", ctype: "", body: []byte("hello world")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTemplate(tt.file, tt.ctype, bytes.NewReader(tt.body))
			if !errors.Is(err, ErrNotImage) {
				t.Errorf("err = %v, want ErrNotImage", err)
			}
		})
	}
	if _, err := DecodeTemplate("cert.png", "image/png", strings.NewReader("garbage")); !errors.Is(err, ErrDecode) {
		t.Errorf("corrupt image err = %v, want decode error", err)
	}
}

func TestLoadTemplateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(path, pngFixture(t, 64, 32), 0o644); err != nil {
		t.Fatal(err)
	}
	tpl, err := LoadTemplateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Name != "bg.png" || tpl.Width() != 64 {
		t.Errorf("tpl = %+v", tpl)
	}
}

func TestDownloadTemplate(t *testing.T) {
	body := pngFixture(t, 50, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Header().Set("Content-Type", "image/png")
			w.Write(body)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	tpl, err := DownloadTemplate(context.Background(), srv.URL+"/assets/cert.png")
	if err != nil {
		t.Fatalf("DownloadTemplate: %v", err)
	}
	if tpl.Name != "cert.png" || tpl.Width() != 50 {
		t.Errorf("tpl = %+v", tpl)
	}
	if _, err := DownloadTemplate(context.Background(), srv.URL+"/page.png.html"); !errors.Is(err, ErrNotImage) {
		t.Errorf("html err = %v, want ErrNotImage", err)
	}
	if _, err := DownloadTemplate(context.Background(), "file:///etc/passwd.png"); !errors.Is(err, ErrDownload) {
		t.Errorf("file scheme err = %v, want ErrDownload", err)
	}
}
