package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/nimasrn/momo-analyzer/internal/ingest"
	"github.com/nimasrn/momo-analyzer/internal/model"
	"github.com/nimasrn/momo-analyzer/internal/services"
	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
)

type ImportService interface {
	Import(ctx context.Context, r io.Reader) (*model.ImportResult, error)
	Enqueue(ctx context.Context, document []byte) (*model.ImportJob, error)
}

type ImportHandler struct {
	svc ImportService
}

func RegisterImportRoutes(e *xhttp.Group, h *ImportHandler) {
	e.POST("/imports", h.CreateImport)
}

func NewImportHandler(svc ImportService) *ImportHandler {
	return &ImportHandler{
		svc: svc,
	}
}

// CreateImport accepts an SMS backup document as the request body. By default the document
// is queued and 202 is returned; ?mode=sync parses it in the request and returns the summary.
func (h *ImportHandler) CreateImport(ctx *xhttp.RequestCtx) {
	body := ctx.PostBody()
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(ctx, xhttp.StatusBadRequest, services.ErrEmptyDocument.Error())
		return
	}

	if query(ctx, "mode") == "sync" {
		result, err := h.svc.Import(ctx, bytes.NewReader(body))
		if err != nil {
			writeImportError(ctx, err)
			return
		}
		writeJSON(ctx, xhttp.StatusOK, result)
		return
	}

	job, err := h.svc.Enqueue(ctx, body)
	if err != nil {
		writeImportError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusAccepted, job)
}

func writeImportError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, ingest.ErrInvalidDocument), errors.Is(err, services.ErrEmptyDocument):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrQueueUnavailable):
		writeError(ctx, xhttp.StatusServiceUnavailable, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
