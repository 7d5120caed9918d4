package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tatxtion/hstay-ai/internal/common"
	"github.com/tatxtion/hstay-ai/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AuditExporter is the slice of the export service the transport needs.
type AuditExporter interface {
	ExportAuditsXLSX(ctx context.Context, limit int) ([]byte, error)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, err error) {
	c.JSON(common.HTTPStatus(err), errorBody{
		Code:    common.ErrorCode(err),
		Message: err.Error(),
	})
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": Version,
	})
}

// ExtractV1 extracts a document already present in the image directory.
// POST /v1/extract
func (h *Handler) ExtractV1(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.NewAppError(common.CodeValidation, "invalid request body", err))
		return
	}

	resp, err := h.svc.Process(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExtractV2 extracts a document fetched from a URL or the object store.
// POST /v2/extract
func (h *Handler) ExtractV2(c *gin.Context) {
	var req service.RequestV2
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.NewAppError(common.CodeValidation, "invalid request body", err))
		return
	}

	resp, err := h.svc.ProcessV2(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportAudits streams recent extraction runs as an XLSX workbook.
// GET /v1/audit/export?limit=N
func (h *Handler) ExportAudits(c *gin.Context) {
	if h.export == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody{
			Code:    common.CodeConfigError,
			Message: "audit store is not configured",
		})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, common.NewAppError(common.CodeValidation, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	b, err := h.export.ExportAuditsXLSX(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, b)
}
