// Package server is the HTTP transport: gin routes over the extraction
// service, plus health and audit export endpoints.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/service"
)

// Version is stamped via -ldflags at build time.
var Version = "dev"

// Handler bundles the dependencies the routes need.
type Handler struct {
	svc    service.Extractor
	export AuditExporter // nil when no audit store is configured
	logger *slog.Logger
}

func NewHandler(svc service.Extractor, export AuditExporter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, export: export, logger: logger}
}

// NewRouter assembles the gin engine.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	r.GET("/healthz", h.Health)
	r.POST("/v1/extract", h.ExtractV1)
	r.POST("/v2/extract", h.ExtractV2)
	r.GET("/v1/audit/export", h.ExportAudits)
	return r
}

// requestLogger logs one line per request in the same shape the rest of the
// service logs in.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := uuid.New().String()
		c.Set("req_id", reqID)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), reqID))
		start := time.Now()

		c.Next()

		logger.Info("http.request",
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
