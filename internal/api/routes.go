package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.GET("/theme", h.getTheme)
		api.PUT("/theme", h.putTheme)
		api.POST("/sessions", h.createSession)
	}
	s := api.Group("/sessions/:sid", h.loadSession)
	{
		s.GET("", h.state)
		s.DELETE("", h.deleteSession)
		s.POST("/template", h.uploadTemplate)
		s.POST("/template/url", h.templateFromURL)
		s.POST("/dataset", h.uploadDataset)
		s.PUT("/viewport", h.viewport)
		s.PUT("/anchors", h.anchors)
		s.POST("/boxes", h.addBox)
		s.PUT("/boxes/:id", h.updateBox)
		s.DELETE("/boxes/:id", h.deleteBox)
		s.POST("/pointer", h.pointer)
		s.GET("/overlay", h.overlay)
		s.GET("/preview", h.preview)
		s.GET("/export", h.export)
		s.GET("/layout", h.getLayout)
		s.PUT("/layout", h.putLayout)
		s.GET("/notices", h.notices)
	}
}
