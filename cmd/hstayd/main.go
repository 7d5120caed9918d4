package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/download"
	"github.com/tatxtion/hstay-ai/internal/export"
	"github.com/tatxtion/hstay-ai/internal/extract"
	"github.com/tatxtion/hstay-ai/internal/llm/openai"
	"github.com/tatxtion/hstay-ai/internal/ocr"
	"github.com/tatxtion/hstay-ai/internal/repository"
	"github.com/tatxtion/hstay-ai/internal/server"
	"github.com/tatxtion/hstay-ai/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	textExtractor := extract.NewOCRAdapter(ocr.NewExtractor(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger), logger)

	spans := openai.NewClient(openai.Config{
		APIKey:       cfg.LLM.APIKey,
		BaseURL:      cfg.LLM.BaseURL,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout,
		LenientSpans: true,
	}, logger)

	urls := download.NewDownloader(cfg.Download, cfg.Extraction.AllowedExtensions, logger)

	var objects service.ObjectDownloader
	if cfg.ObjectStore.Enabled {
		store, err := download.NewObjectStore(cfg.ObjectStore, cfg.Download, cfg.Extraction.AllowedExtensions, logger)
		if err != nil {
			logger.Error("object store init failed", "err", err)
			os.Exit(1)
		}
		objects = store
		logger.Info("object store enabled", "endpoint", cfg.ObjectStore.Endpoint)
	}

	var audits service.AuditRecorder
	var exporter server.AuditExporter
	if cfg.Database.Enabled {
		pool, err := repository.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)

		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			logger.Error("db health failed", "err", err)
			os.Exit(1)
		}

		store := repository.NewAuditStore(pool, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("db schema failed", "err", err)
			os.Exit(1)
		}
		audits = store
		exporter = export.NewService(store, logger)
		logger.Info("audit store enabled")
	}

	svc := service.NewService(cfg.Extraction, textExtractor, spans, urls, objects, audits, logger)
	router := server.NewRouter(server.NewHandler(svc, exporter, logger))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "err", err)
	}
	logger.Info("stopped")
}
