package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/download"
	"github.com/tatxtion/hstay-ai/internal/extract"
	"github.com/tatxtion/hstay-ai/internal/llm/openai"
	"github.com/tatxtion/hstay-ai/internal/ocr"
	"github.com/tatxtion/hstay-ai/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 || len(os.Args) > 3 {
		logger.Error("usage", "cmd", "runextract <filename> [document_type]")
		os.Exit(2)
	}
	filename := os.Args[1]
	var docType *string
	if len(os.Args) == 3 {
		docType = &os.Args[2]
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	svc := service.NewService(cfg.Extraction, textExtractor, spans, urls, nil, nil, logger)

	start := time.Now()
	resp, err := svc.Process(ctx, service.Request{
		Filename:     filename,
		DocumentType: docType,
	})
	if err != nil {
		logger.Error("extraction failed",
			"filename", filename, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	logger.Info("extraction OK",
		"filename", filename,
		"document_type", resp.DocumentTypeDetected,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
