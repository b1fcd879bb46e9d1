// Package editor owns one user's certificate project: template, dataset,
// boxes, mappings, and the pointer controller that edits them.
//
// All mutation goes through Session methods under a single mutex, so the
// HTTP layer can call them from concurrent handlers.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/dataset"
	"github.com/youruser/certgen/internal/export"
	"github.com/youruser/certgen/internal/geometry"
	imagepkg "github.com/youruser/certgen/internal/image"
	"github.com/youruser/certgen/internal/interaction"
	"github.com/youruser/certgen/internal/layout"
	"github.com/youruser/certgen/internal/mapping"
	"github.com/youruser/certgen/internal/notice"
)

var (
	ErrNoTemplate     = errors.New("upload a template first")
	ErrRowOutOfRange  = errors.New("row out of range")
	ErrNoDataset      = errors.New("upload a dataset first")
	ErrSuperseded     = errors.New("export cancelled: template was replaced")
	ErrExportInFlight = errors.New("an export is already running")
)

type Session struct {
	ID string

	mu        sync.Mutex
	template  *imagepkg.Template
	gen       uint64
	data      *dataset.Dataset
	boxes     *boxes.Store
	mappings  *mapping.Set
	ctl       *interaction.Controller
	notices   *notice.Queue
	renderer  export.RowRenderer
	cancel    context.CancelFunc
	lastTouch time.Time
	now       func() time.Time
	log       *slog.Logger
}

func NewSession(id string, r export.RowRenderer, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	s := &Session{
		ID:       id,
		boxes:    boxes.NewStore(),
		mappings: mapping.NewSet(),
		notices:  notice.NewQueue(50),
		renderer: r,
		now:      time.Now,
		log:      log.With("session", id),
	}
	s.notices.OnNotify = func(n notice.Notice) {
		s.log.Debug("notice", "level", string(n.Level), "message", n.Message)
	}
	s.ctl = interaction.NewController(s.boxes, s.mappings, s.notices)
	s.lastTouch = s.now()
	return s
}

// TemplateInfo describes the installed template.
type TemplateInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type DatasetInfo struct {
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

// State is a read-only snapshot for clients.
type State struct {
	ID        string             `json:"id"`
	Template  *TemplateInfo      `json:"template,omitempty"`
	Dataset   *DatasetInfo       `json:"dataset,omitempty"`
	Boxes     []boxes.Box        `json:"boxes"`
	Mappings  []mapping.Mapping  `json:"mappings"`
	Mode      string             `json:"mode"`
	Transform geometry.Transform `json:"transform"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:        s.ID,
		Boxes:     s.boxes.All(),
		Mappings:  s.mappings.All(),
		Mode:      s.ctl.Mode().String(),
		Transform: s.ctl.Transform(),
	}
	if s.template != nil {
		st.Template = &TemplateInfo{Name: s.template.Name, Width: s.template.Width(), Height: s.template.Height()}
	}
	if s.data != nil {
		st.Dataset = &DatasetInfo{Columns: s.data.Columns, Rows: s.data.Len()}
	}
	return st
}

// SetTemplate installs a new template. Boxes and mappings are kept since
// they live in the same natural space; any running export is cancelled
// and the viewport must be reported again.
func (s *Session) SetTemplate(t imagepkg.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.template = &t
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.ctl.Cancel()
	s.ctl.SetTransform(geometry.Identity)
	s.notices.Notify(notice.Success, "Template %s loaded (%dx%d)", t.Name, t.Width(), t.Height())
}

// SetDataset replaces the dataset. Mappings whose column disappeared are
// dropped together with the box labels that showed them, and a column
// drag in flight is abandoned.
func (s *Session) SetDataset(ds dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.data = &ds
	if s.ctl.Mode() == interaction.DraggingColumn {
		s.ctl.Cancel()
	}
	s.ctl.SetColumns(ds.Columns)
	s.pruneColumns()
	s.notices.Notify(notice.Success, "Loaded %d rows with %d columns", ds.Len(), len(ds.Columns))
}

func (s *Session) pruneColumns() {
	if s.data == nil {
		return
	}
	gone := s.mappings.RemoveColumnsNotIn(s.data.Columns)
	for _, col := range gone {
		s.boxes.ClearColumn(col)
	}
	if len(gone) > 0 {
		s.notices.Notify(notice.Info, "Removed %d mapping(s) for missing columns", len(gone))
	}
}

// SetViewport recomputes the screen transform from the template's
// rendered width and the screen position of its top-left corner.
func (s *Session) SetViewport(renderedWidth float64, origin geometry.Point) (geometry.Transform, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.template == nil {
		return geometry.Transform{}, ErrNoTemplate
	}
	t, err := geometry.NewTransform(renderedWidth, float64(s.template.Width()), origin)
	if err != nil {
		return geometry.Transform{}, err
	}
	s.ctl.SetTransform(t)
	return t, nil
}

func (s *Session) SetAnchors(a map[string]geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.ctl.SetAnchors(a)
}

func (s *Session) AddBox() boxes.Box {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	b := s.boxes.Add()
	s.notices.Notify(notice.Success, "Box added")
	return b
}

// UpdateBox replaces a box's geometry and kind. The column label is a
// cache maintained by drops and cannot be set here.
func (s *Session) UpdateBox(b boxes.Box) (boxes.Box, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	cur, ok := s.boxes.Get(b.ID)
	if !ok {
		return boxes.Box{}, boxes.ErrBoxNotFound
	}
	b.ColumnID = cur.ColumnID
	if b.Kind == "" {
		b.Kind = cur.Kind
	}
	if b.Kind != boxes.KindText && b.Kind != boxes.KindQR {
		return boxes.Box{}, fmt.Errorf("unknown box kind %q", b.Kind)
	}
	return s.boxes.Update(b)
}

// DeleteBox removes a box and every mapping that targets it.
func (s *Session) DeleteBox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err := s.boxes.Delete(id); err != nil {
		return err
	}
	n := s.mappings.RemoveBox(id)
	s.log.Debug("box deleted", "box", id, "mappings_removed", n)
	s.notices.Notify(notice.Success, "Box deleted")
	return nil
}

// Pointer applies client pointer events and returns the resulting overlay.
func (s *Session) Pointer(events []interaction.Event) (interaction.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	err := s.ctl.Apply(events)
	return s.ctl.Overlay(), err
}

func (s *Session) Overlay() interaction.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctl.Overlay()
}

// Notify queues a notice for the client.
func (s *Session) Notify(level notice.Level, format string, args ...any) {
	s.notices.Notify(level, format, args...)
}

func (s *Session) Notices() []notice.Notice {
	return s.notices.Drain()
}

func (s *Session) Layout() layout.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.New(s.boxes.All(), s.mappings.All())
}

// ApplyLayout replaces boxes and mappings with a saved layout. Box labels
// are rebuilt from the mappings rather than trusted from the file.
func (s *Session) ApplyLayout(l layout.Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.ctl.Cancel()
	s.boxes.Replace(l.Boxes)
	s.mappings.Replace(l.Mappings)
	s.pruneColumns()
	for _, b := range s.boxes.All() {
		col, _ := s.mappings.ColumnFor(b.ID)
		s.boxes.SetColumn(b.ID, col)
	}
	s.notices.Notify(notice.Success, "Layout applied: %d boxes", s.boxes.Len())
	return nil
}

// Preview renders one data row (0-based) and downsizes it to width when
// width > 0. Without a dataset the boxes render empty.
func (s *Session) Preview(row, width int) ([]byte, error) {
	s.mu.Lock()
	if s.template == nil {
		s.mu.Unlock()
		return nil, ErrNoTemplate
	}
	tpl := s.template.Image
	list := s.boxes.All()
	cols := s.mappings.Clone()
	var cells, headers []string
	if s.data != nil && s.data.Len() > 0 {
		if row < 0 || row >= s.data.Len() {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row+1, s.data.Len())
		}
		cells, headers = s.data.Rows[row], s.data.Columns
	}
	s.touch()
	s.mu.Unlock()

	img, err := s.renderer.Render(tpl, list, cols, cells, headers)
	if err != nil {
		s.notices.Notify(notice.Error, "Preview failed")
		return nil, err
	}
	return imagepkg.PNGBytes(imagepkg.Thumbnail(img, width))
}

// Export renders every row into a zip archive. Replacing the template
// while it runs cancels it with ErrSuperseded.
func (s *Session) Export(ctx context.Context) ([]byte, int, error) {
	s.mu.Lock()
	if s.template == nil {
		s.mu.Unlock()
		s.notices.Notify(notice.Error, "%s", ErrNoTemplate)
		return nil, 0, ErrNoTemplate
	}
	if s.data == nil {
		s.mu.Unlock()
		s.notices.Notify(notice.Error, "%s", ErrNoDataset)
		return nil, 0, ErrNoDataset
	}
	if s.cancel != nil {
		s.mu.Unlock()
		return nil, 0, ErrExportInFlight
	}
	tpl := s.template.Image
	list := s.boxes.All()
	cols := s.mappings.Clone()
	ds := *s.data
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.touch()
	s.mu.Unlock()

	start := time.Now()
	e := &export.Exporter{Renderer: s.renderer}
	out, err := e.Export(ctx, tpl, list, cols, ds)
	cancel()

	s.mu.Lock()
	superseded := s.gen != gen
	if !superseded {
		s.cancel = nil
	}
	s.touch()
	s.mu.Unlock()

	switch {
	case err == nil:
		s.log.Info("export finished", "rows", ds.Len(), "bytes", len(out), "took", time.Since(start))
		s.notices.Notify(notice.Success, "Exported %d certificates", ds.Len())
		return out, ds.Len(), nil
	case errors.Is(err, export.ErrPrecondition):
		s.notices.Notify(notice.Error, "%s", err)
		return nil, 0, err
	case superseded && errors.Is(err, context.Canceled):
		s.notices.Notify(notice.Info, "Export cancelled because the template changed")
		return nil, 0, ErrSuperseded
	default:
		s.log.Error("export failed", "error", err)
		s.notices.Notify(notice.Error, "Failed to generate certificates")
		return nil, 0, err
	}
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Session) touch() { s.lastTouch = s.now() }
