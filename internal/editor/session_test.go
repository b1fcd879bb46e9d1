package editor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/dataset"
	"github.com/youruser/certgen/internal/export"
	"github.com/youruser/certgen/internal/geometry"
	imagepkg "github.com/youruser/certgen/internal/image"
	"github.com/youruser/certgen/internal/interaction"
	"github.com/youruser/certgen/internal/layout"
	"github.com/youruser/certgen/internal/mapping"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSession(t *testing.T) *Session {
	t.Helper()
	r, err := imagepkg.NewRenderer(imagepkg.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewSession("test", r, quiet)
}

func tpl(w, h int) imagepkg.Template {
	return imagepkg.Template{Name: "bg.png", Image: imaging.New(w, h, color.White)}
}

func people() dataset.Dataset {
	return dataset.Dataset{
		Columns: []string{"Name", "Score"},
		Rows:    [][]string{{"Ada", "100"}, {"Grace", "98"}},
	}
}

func TestTemplateSwapKeepsBoxesAndMappings(t *testing.T) {
	s := newSession(t)
	s.SetTemplate(tpl(800, 600))
	b := s.AddBox()
	s.SetDataset(people())
	if _, err := s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1},
	}); err != nil {
		t.Fatal(err)
	}
	s.SetTemplate(tpl(1000, 700))
	st := s.State()
	if len(st.Boxes) != 1 || len(st.Mappings) != 1 {
		t.Fatalf("state after swap = %+v", st)
	}
	if st.Template.Width != 1000 || st.Transform != geometry.Identity {
		t.Errorf("template=%+v transform=%+v", st.Template, st.Transform)
	}
}

func TestDatasetSwapDropsMissingColumns(t *testing.T) {
	s := newSession(t)
	s.SetTemplate(tpl(800, 600))
	a := s.AddBox()
	b := s.AddBox()
	s.SetDataset(people())
	_, _ = s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: a.X + 1, Y: a.Y + 1},
		{Type: interaction.EventColumnDown, ColumnID: "Score"},
		{Type: interaction.EventUp, X: b.X + b.Width - 1, Y: b.Y + b.Height - 1},
	})
	if got := len(s.State().Mappings); got != 2 {
		t.Fatalf("mappings = %d, want 2", got)
	}

	s.SetDataset(dataset.Dataset{Columns: []string{"Name", "Date"}})
	st := s.State()
	if len(st.Mappings) != 1 || st.Mappings[0].ColumnID != "Name" {
		t.Errorf("mappings = %+v", st.Mappings)
	}
	for _, box := range st.Boxes {
		if box.ColumnID == "Score" {
			t.Errorf("stale label on box %s", box.ID)
		}
	}
}

func TestDeleteBoxCascades(t *testing.T) {
	s := newSession(t)
	s.SetTemplate(tpl(800, 600))
	a := s.AddBox()
	s.SetDataset(people())
	_ = s.ApplyLayout(layout.New(
		[]boxes.Box{a, {ID: "other", X: 400, Y: 400, Width: 100, Height: 40}},
		[]mapping.Mapping{{ColumnID: "Name", BoxID: a.ID}, {ColumnID: "Score", BoxID: "other"}},
	))
	if err := s.DeleteBox(a.ID); err != nil {
		t.Fatal(err)
	}
	st := s.State()
	if len(st.Mappings) != 1 || st.Mappings[0].BoxID != "other" {
		t.Errorf("mappings = %+v", st.Mappings)
	}
	if err := s.DeleteBox(a.ID); !errors.Is(err, boxes.ErrBoxNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	var msgs []string
	for _, n := range s.Notices() {
		msgs = append(msgs, n.Message)
	}
	if len(msgs) == 0 || msgs[len(msgs)-1] != "Box deleted" {
		t.Errorf("notices = %v", msgs)
	}
}

func TestUpdateBoxKeepsColumnLabel(t *testing.T) {
	s := newSession(t)
	s.SetDataset(people())
	b := s.AddBox()
	_, _ = s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: b.X + 5, Y: b.Y + 5},
	})
	got, err := s.UpdateBox(boxes.Box{ID: b.ID, X: 10, Y: 10, Width: 300, Height: 80, ColumnID: "hacked"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ColumnID != "Name" || got.Kind != boxes.KindText || got.Width != 300 {
		t.Errorf("UpdateBox = %+v", got)
	}
	if _, err := s.UpdateBox(boxes.Box{ID: b.ID, Width: 100, Height: 40, Kind: "barcode"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestColumnDropRequiresDatasetColumn(t *testing.T) {
	s := newSession(t)
	s.SetTemplate(tpl(400, 200))
	b := s.AddBox()
	drop := func(col string) error {
		_, err := s.Pointer([]interaction.Event{
			{Type: interaction.EventColumnDown, ColumnID: col},
			{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1},
		})
		return err
	}

	if err := drop("Name"); !errors.Is(err, interaction.ErrUnknownColumn) {
		t.Errorf("drop before dataset err = %v", err)
	}
	s.SetDataset(people())
	if err := drop("NoSuchColumn"); !errors.Is(err, interaction.ErrUnknownColumn) {
		t.Errorf("drop of unknown column err = %v", err)
	}
	st := s.State()
	if len(st.Mappings) != 0 || st.Boxes[0].ColumnID != "" || st.Mode != "idle" {
		t.Fatalf("state after rejected drops = %+v", st)
	}
	if _, _, err := s.Export(context.Background()); !errors.Is(err, export.ErrPrecondition) {
		t.Errorf("export err = %v, want precondition failure", err)
	}
}

func TestDatasetSwapAbandonsColumnDrag(t *testing.T) {
	s := newSession(t)
	s.SetTemplate(tpl(800, 600))
	b := s.AddBox()
	s.SetDataset(people())
	if _, err := s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Score"},
		{Type: interaction.EventMove, X: b.X + 1, Y: b.Y + 1},
	}); err != nil {
		t.Fatal(err)
	}
	s.SetDataset(dataset.Dataset{Columns: []string{"Name"}})
	if mode := s.State().Mode; mode != "idle" {
		t.Fatalf("mode after dataset swap = %s", mode)
	}
	if _, err := s.Pointer([]interaction.Event{{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1}}); err != nil {
		t.Fatal(err)
	}
	if got := s.State().Mappings; len(got) != 0 {
		t.Errorf("mappings = %+v", got)
	}
}

func TestApplyLayoutRebuildsLabels(t *testing.T) {
	s := newSession(t)
	err := s.ApplyLayout(layout.New(
		[]boxes.Box{
			{ID: "a", Width: 100, Height: 40, ColumnID: "Forged"},
			{ID: "b", Y: 100, Width: 100, Height: 40},
		},
		[]mapping.Mapping{{ColumnID: "Name", BoxID: "b"}},
	))
	if err != nil {
		t.Fatal(err)
	}
	labels := map[string]string{}
	for _, b := range s.State().Boxes {
		labels[b.ID] = b.ColumnID
	}
	if labels["a"] != "" || labels["b"] != "Name" {
		t.Errorf("labels = %v", labels)
	}
}

func TestViewportRequiresTemplate(t *testing.T) {
	s := newSession(t)
	if _, err := s.SetViewport(400, geometry.Point{}); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("err = %v", err)
	}
	s.SetTemplate(tpl(800, 600))
	tr, err := s.SetViewport(400, geometry.Point{X: 10, Y: 20})
	if err != nil || tr.Scale != 0.5 {
		t.Errorf("transform = %+v, %v", tr, err)
	}
}

func TestPreview(t *testing.T) {
	s := newSession(t)
	if _, err := s.Preview(0, 0); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("err = %v", err)
	}
	s.SetTemplate(tpl(800, 600))
	s.SetDataset(people())
	if _, err := s.Preview(5, 0); !errors.Is(err, ErrRowOutOfRange) {
		t.Errorf("err = %v", err)
	}
	b, err := s.Preview(1, 200)
	if err != nil {
		t.Fatal(err)
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 150 {
		t.Errorf("preview size = %v", img.Bounds())
	}
}

func TestExport(t *testing.T) {
	s := newSession(t)
	if _, _, err := s.Export(context.Background()); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("err = %v", err)
	}
	s.SetTemplate(tpl(400, 200))
	s.SetDataset(people())
	if _, _, err := s.Export(context.Background()); !errors.Is(err, export.ErrNoBoxes) {
		t.Errorf("err = %v", err)
	}
	b := s.AddBox()
	_, _ = s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1},
	})
	out, n, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(zr.File) != 2 {
		t.Errorf("rows = %d, entries = %d", n, len(zr.File))
	}
}

// blockingRenderer parks on its first call until released.
type blockingRenderer struct {
	started chan struct{}
	release chan struct{}
	calls   int
}

func (b *blockingRenderer) Render(tpl image.Image, _ []boxes.Box, _ imagepkg.ColumnResolver, _, _ []string) (*image.NRGBA, error) {
	b.calls++
	if b.calls == 1 {
		close(b.started)
		<-b.release
	}
	return imaging.Clone(tpl), nil
}

func TestTemplateReplacementCancelsExport(t *testing.T) {
	r := &blockingRenderer{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSession("x", r, quiet)
	s.SetTemplate(tpl(50, 50))
	s.SetDataset(people())
	b := s.AddBox()
	_, _ = s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1},
	})

	errc := make(chan error, 1)
	go func() {
		_, _, err := s.Export(context.Background())
		errc <- err
	}()
	<-r.started
	if _, _, err := s.Export(context.Background()); !errors.Is(err, ErrExportInFlight) {
		t.Errorf("concurrent export err = %v", err)
	}
	s.SetTemplate(tpl(60, 60))
	close(r.release)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("err = %v, want ErrSuperseded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("export did not finish")
	}
}

func TestRegistrySweep(t *testing.T) {
	reg := NewRegistry(nil, time.Minute, quiet)
	old := reg.Create()
	fresh := reg.Create()
	old.mu.Lock()
	old.lastTouch = time.Now().Add(-2 * time.Minute)
	old.mu.Unlock()

	if n := reg.Sweep(time.Now()); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if _, err := reg.Get(old.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("old session err = %v", err)
	}
	if _, err := reg.Get(fresh.ID); err != nil {
		t.Errorf("fresh session err = %v", err)
	}
}

func TestRegistrySweepSparesRunningExport(t *testing.T) {
	r := &blockingRenderer{started: make(chan struct{}), release: make(chan struct{})}
	reg := NewRegistry(r, time.Minute, quiet)
	s := reg.Create()
	s.SetTemplate(tpl(50, 50))
	s.SetDataset(people())
	b := s.AddBox()
	_, _ = s.Pointer([]interaction.Event{
		{Type: interaction.EventColumnDown, ColumnID: "Name"},
		{Type: interaction.EventUp, X: b.X + 1, Y: b.Y + 1},
	})

	errc := make(chan error, 1)
	go func() {
		_, _, err := s.Export(context.Background())
		errc <- err
	}()
	<-r.started
	stale := time.Now().Add(-2 * time.Minute)
	s.mu.Lock()
	s.lastTouch = stale
	s.mu.Unlock()

	if n := reg.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep during export = %d, want 0", n)
	}
	close(r.release)
	if err := <-errc; err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !s.IdleSince().After(stale) {
		t.Error("finished export did not refresh the idle clock")
	}
	if n := reg.Sweep(time.Now()); n != 0 {
		t.Errorf("Sweep after export = %d, want 0", n)
	}
}
