package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/youruser/certgen/internal/api"
	"github.com/youruser/certgen/internal/config"
	"github.com/youruser/certgen/internal/dataset"
	"github.com/youruser/certgen/internal/editor"
	imagepkg "github.com/youruser/certgen/internal/image"
	"github.com/youruser/certgen/internal/logger"
	"github.com/youruser/certgen/internal/prefs"
)

func main() {
	configPath := flag.String("config", "certgen.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log, closer := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, MaxSizeMB: cfg.Log.MaxSizeMB})
	defer closer.Close()
	slog.SetDefault(log)

	renderer, err := imagepkg.NewRenderer(imagepkg.Options{
		FontPath:  cfg.Render.FontPath,
		FontRatio: cfg.Render.FontRatio,
		TextColor: cfg.Render.TextColor,
	})
	if err != nil {
		log.Error("failed to init renderer", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := editor.NewRegistry(renderer, cfg.SessionTTL(), log)
	go sessions.Run(ctx, time.Minute)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	api.RegisterRoutes(r, &api.Handler{
		Sessions:  sessions,
		Datasets:  dataset.Loader{MaxRows: cfg.Dataset.MaxRows},
		Prefs:     prefs.NewStore(cfg.Prefs.Path),
		MaxUpload: cfg.MaxUploadBytes(),
		Log:       log,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting server", "url", "http://localhost"+cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
