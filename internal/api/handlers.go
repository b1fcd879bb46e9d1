package api

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/dataset"
	"github.com/youruser/certgen/internal/editor"
	"github.com/youruser/certgen/internal/export"
	"github.com/youruser/certgen/internal/geometry"
	imagepkg "github.com/youruser/certgen/internal/image"
	"github.com/youruser/certgen/internal/interaction"
	"github.com/youruser/certgen/internal/layout"
	"github.com/youruser/certgen/internal/notice"
	"github.com/youruser/certgen/internal/prefs"
)

const sessionKey = "session"

// Handler serves the editor API on top of a session registry.
type Handler struct {
	Sessions  *editor.Registry
	Datasets  dataset.Loader
	Prefs     *prefs.Store
	MaxUpload int64
	Log       *slog.Logger
}

// health
func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createSession(c *gin.Context) {
	s := h.Sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"id": s.ID})
}

func (h *Handler) loadSession(c *gin.Context) {
	s, err := h.Sessions.Get(c.Param("sid"))
	if err != nil {
		abort(c, err)
		return
	}
	c.Set(sessionKey, s)
	c.Next()
}

func session(c *gin.Context) *editor.Session {
	return c.MustGet(sessionKey).(*editor.Session)
}

func (h *Handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).State())
}

func (h *Handler) deleteSession(c *gin.Context) {
	h.Sessions.Delete(session(c).ID)
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadTemplate(c *gin.Context) {
	s := session(c)
	f, fh, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()
	tpl, err := imagepkg.DecodeTemplate(fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		rejectInput(c, s, err)
		return
	}
	s.SetTemplate(tpl)
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) templateFromURL(c *gin.Context) {
	s := session(c)
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tpl, err := imagepkg.DownloadTemplate(c.Request.Context(), req.URL)
	if err != nil {
		rejectInput(c, s, err)
		return
	}
	s.SetTemplate(tpl)
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) uploadDataset(c *gin.Context) {
	s := session(c)
	f, fh, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer f.Close()
	ds, err := h.Datasets.Load(fh.Filename, f)
	if err != nil {
		rejectInput(c, s, err)
		return
	}
	s.SetDataset(ds)
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) viewport(c *gin.Context) {
	var req struct {
		RenderedWidth float64 `json:"rendered_width"`
		OriginX       float64 `json:"origin_x"`
		OriginY       float64 `json:"origin_y"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := session(c).SetViewport(req.RenderedWidth, geometry.Point{X: req.OriginX, Y: req.OriginY})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) anchors(c *gin.Context) {
	var req map[string]geometry.Point
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := session(c)
	s.SetAnchors(req)
	c.JSON(http.StatusOK, s.Overlay())
}

func (h *Handler) addBox(c *gin.Context) {
	c.JSON(http.StatusCreated, session(c).AddBox())
}

func (h *Handler) updateBox(c *gin.Context) {
	var b boxes.Box
	if err := c.ShouldBindJSON(&b); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b.ID = c.Param("id")
	out, err := session(c).UpdateBox(b)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) deleteBox(c *gin.Context) {
	if err := session(c).DeleteBox(c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pointer applies a batch of pointer events; the overlay is returned even
// when an event fails so the client can redraw.
func (h *Handler) pointer(c *gin.Context) {
	var events []interaction.Event
	if err := c.ShouldBindJSON(&events); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ov, err := session(c).Pointer(events)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, interaction.ErrBusy) {
			status = http.StatusConflict
		} else if errors.Is(err, boxes.ErrBoxNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error(), "overlay": ov})
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *Handler) overlay(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).Overlay())
}

func (h *Handler) preview(c *gin.Context) {
	row, err := intQuery(c, "row", 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	width, err := intQuery(c, "width", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := session(c).Preview(row-1, width)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handler) export(c *gin.Context) {
	b, n, err := session(c).Export(c.Request.Context())
	if err != nil {
		abort(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="certificates.zip"`)
	c.Header("X-Certificate-Count", strconv.Itoa(n))
	c.Data(http.StatusOK, "application/zip", b)
}

func (h *Handler) getLayout(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).Layout())
}

func (h *Handler) putLayout(c *gin.Context) {
	l, err := layout.Decode(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := session(c)
	if err := s.ApplyLayout(l); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) notices(c *gin.Context) {
	n := session(c).Notices()
	if n == nil {
		n = []notice.Notice{}
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) getTheme(c *gin.Context) {
	p, err := h.Prefs.Load()
	if err != nil {
		h.Log.Warn("prefs unreadable, using defaults", "error", err)
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) putTheme(c *gin.Context) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	th, err := prefs.ParseTheme(req.Theme)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := prefs.Prefs{Theme: th}
	if err := h.Prefs.Save(p); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// openUpload returns the multipart "file" field, capped at MaxUpload.
func (h *Handler) openUpload(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			abort(c, err)
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file: " + err.Error()})
		}
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, err)
		return nil, nil, false
	}
	return f, fh, true
}

// rejectInput reports an upload that left the session untouched.
func rejectInput(c *gin.Context, s *editor.Session, err error) {
	s.Notify(notice.Error, "%s", err)
	abort(c, err)
}

// abort maps domain errors to HTTP statuses.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, editor.ErrSessionNotFound), errors.Is(err, boxes.ErrBoxNotFound):
		status = http.StatusNotFound
	case errors.Is(err, editor.ErrSuperseded), errors.Is(err, editor.ErrExportInFlight):
		status = http.StatusConflict
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, imagepkg.ErrDownload):
		status = http.StatusBadGateway
	case errors.Is(err, imagepkg.ErrNotImage),
		errors.Is(err, imagepkg.ErrDecode),
		errors.Is(err, dataset.ErrUnsupported),
		errors.Is(err, dataset.ErrEmpty),
		errors.Is(err, dataset.ErrTooManyRows),
		errors.Is(err, export.ErrPrecondition),
		errors.Is(err, editor.ErrNoTemplate),
		errors.Is(err, editor.ErrNoDataset),
		errors.Is(err, editor.ErrRowOutOfRange),
		errors.Is(err, geometry.ErrBadDimensions),
		errors.As(err, new(*dataset.ParseError)):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = 499
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
