package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError(CodeEmptyOCRText, "ocr output is empty", ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), CodeEmptyOCRText)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeSourceFileNotFound, http.StatusNotFound},
		{CodePathTraversal, http.StatusBadRequest},
		{CodeInvalidFileExtension, http.StatusBadRequest},
		{CodeInvalidDocumentURL, http.StatusBadRequest},
		{CodeEmptyOCRText, http.StatusUnprocessableEntity},
		{CodeOCRError, http.StatusBadGateway},
		{CodeSpanExtractorError, http.StatusBadGateway},
		{CodeDownloadError, http.StatusBadGateway},
		{CodeObjectStoreError, http.StatusBadGateway},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(NewAppError(tt.code, "x", nil)), tt.code)
	}
}

func TestHTTPStatus_WrappedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAppError(CodeDownloadError, "download failed", nil))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err))
	assert.Equal(t, CodeDownloadError, ErrorCode(err))
}

func TestHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(errors.New("boom")))
}
