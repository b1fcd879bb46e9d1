package main

import (
	"archive/zip"
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	imagepkg "github.com/youruser/certgen/internal/image"
)

func writeFixtures(t *testing.T, layoutJSON string) (dir string) {
	t.Helper()
	dir = t.TempDir()
	png, err := imagepkg.PNGBytes(imaging.New(400, 200, color.White))
	if err != nil {
		t.Fatal(err)
	}
	files := map[string][]byte{
		"bg.png":      png,
		"people.csv":  []byte("Name,Score\nAda,100\nGrace,98\nLinus,77\n\n"),
		"layout.json": []byte(layoutJSON),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

const mappedLayout = `{"version":1,"boxes":[{"id":"a","x":50,"y":50,"width":200,"height":40}],"mappings":[{"column_id":"Name","box_id":"a"}]}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExportCommand(t *testing.T) {
	dir := writeFixtures(t, mappedLayout)
	outPath := filepath.Join(dir, "out", "certs.zip")
	out, err := run(t, "export",
		"--template", filepath.Join(dir, "bg.png"),
		"--layout", filepath.Join(dir, "layout.json"),
		"--data", filepath.Join(dir, "people.csv"),
		"--out", outPath)
	if err != nil {
		t.Fatalf("export: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wrote 3 certificates") {
		t.Errorf("output = %q", out)
	}
	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 3 || zr.File[2].Name != "certificate-3.png" {
		t.Errorf("archive has %d entries", len(zr.File))
	}
}

func TestExportCommandUnmappedBox(t *testing.T) {
	dir := writeFixtures(t, `{"version":1,"boxes":[{"id":"a"},{"id":"b"}],"mappings":[{"column_id":"Name","box_id":"a"}]}`)
	outPath := filepath.Join(dir, "certs.zip")
	_, err := run(t, "export",
		"-t", filepath.Join(dir, "bg.png"),
		"-l", filepath.Join(dir, "layout.json"),
		"-d", filepath.Join(dir, "people.csv"),
		"-o", outPath)
	if err == nil {
		t.Fatal("expected precondition error")
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Error("archive written despite failure")
	}
}

func TestPreviewCommand(t *testing.T) {
	dir := writeFixtures(t, mappedLayout)
	outPath := filepath.Join(dir, "p.png")
	if _, err := run(t, "preview",
		"-t", filepath.Join(dir, "bg.png"),
		"-l", filepath.Join(dir, "layout.json"),
		"-d", filepath.Join(dir, "people.csv"),
		"--row", "2", "-o", outPath); err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 400 {
		t.Errorf("preview width = %d", img.Bounds().Dx())
	}
	if _, err := run(t, "preview",
		"-t", filepath.Join(dir, "bg.png"),
		"-l", filepath.Join(dir, "layout.json"),
		"-d", filepath.Join(dir, "people.csv"),
		"--row", "9", "-o", outPath); err == nil {
		t.Error("expected out-of-range error")
	}
}
