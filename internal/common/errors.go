package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors with a stable code that
// survives onto the wire.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUpstream     = errors.New("upstream service error")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Stable error codes surfaced to API clients.
const (
	CodePathTraversal        = "PATH_TRAVERSAL"
	CodeInvalidFileExtension = "INVALID_FILE_EXTENSION"
	CodeSourceFileNotFound   = "SOURCE_FILE_NOT_FOUND"
	CodeEmptyOCRText         = "EMPTY_OCR_TEXT"
	CodeOCRError             = "OCR_ERROR"
	CodeSpanExtractorError   = "SPAN_EXTRACTOR_ERROR"
	CodeInvalidDocumentURL   = "INVALID_DOCUMENT_URL"
	CodeDownloadError        = "DOWNLOAD_ERROR"
	CodeObjectStoreError     = "OBJECT_STORE_ERROR"
	CodeConfigError          = "CONFIG_ERROR"
	CodeValidation           = "VALIDATION_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error onto the transport status code. Unknown errors
// are internal.
func HTTPStatus(err error) int {
	var ae *AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case CodeSourceFileNotFound:
		return http.StatusNotFound
	case CodePathTraversal, CodeInvalidFileExtension, CodeInvalidDocumentURL, CodeConfigError, CodeValidation:
		return http.StatusBadRequest
	case CodeEmptyOCRText:
		return http.StatusUnprocessableEntity
	case CodeOCRError, CodeSpanExtractorError, CodeDownloadError, CodeObjectStoreError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode extracts the stable code, defaulting to an internal marker.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "INTERNAL_ERROR"
}
