package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/nimasrn/momo-analyzer/internal/model"
	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
)

type TransactionService interface {
	List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionRecord, int64, error)
	Get(ctx context.Context, id int64) (*model.TransactionRecord, error)
	Create(ctx context.Context, p model.TransactionCreateRequest) (*model.TransactionRecord, error)
	Update(ctx context.Context, id int64, p model.TransactionUpdateRequest) (*model.TransactionRecord, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *xhttp.Group, h *TransactionHandler) {
	e.GET("/transactions", h.ListTransactions)
	e.POST("/transactions", h.CreateTransaction)
	e.GET("/transactions/{id}", h.GetTransaction)
	e.PUT("/transactions/{id}", h.UpdateTransaction)
	e.DELETE("/transactions/{id}", h.DeleteTransaction)
}

func NewTransactionHandler(svc TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: svc,
	}
}

type listResponse struct {
	Items []*model.TransactionRecord `json:"items"`
	Total int64                      `json:"total"`
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "type"); v != "" {
		t := model.TxType(v)
		if !t.Persistable() {
			writeError(ctx, xhttp.StatusBadRequest, model.ErrInvalidType.Error())
			return
		}
		f.Type = &t
	}
	if v := query(ctx, "limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(ctx, xhttp.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := query(ctx, "offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(ctx, xhttp.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.TransactionRecord{}
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: items, Total: total})
}

func (h *TransactionHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	rec, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rec)
}

func (h *TransactionHandler) CreateTransaction(ctx *xhttp.RequestCtx) {
	var req model.TransactionCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, rec)
}

func (h *TransactionHandler) UpdateTransaction(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	var req model.TransactionUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	rec, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rec)
}

func (h *TransactionHandler) DeleteTransaction(ctx *xhttp.RequestCtx) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.Response.SetStatusCode(xhttp.StatusNoContent)
}

// pathID reads the {id} route parameter and answers 400 itself when it is not a positive integer.
func pathID(ctx *xhttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(ctx, xhttp.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, model.ErrTransactionNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrInvalidType),
		errors.Is(err, model.ErrInvalidAmount),
		errors.Is(err, model.ErrInvalidFee),
		errors.Is(err, model.ErrNotNullable):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
