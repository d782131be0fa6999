package handlers

import (
	"context"

	xhttp "github.com/nimasrn/momo-analyzer/pkg/http"
)

type HealthService interface {
	Check(ctx context.Context) (map[string]string, error)
}

type HealthHandler struct {
	svc HealthService
}

func RegisterHealthRoutes(e *xhttp.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(svc HealthService) *HealthHandler {
	return &HealthHandler{
		svc: svc,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	checks, err := h.svc.Check(ctx)
	if err != nil {
		writeJSON(ctx, xhttp.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Checks: checks})
		return
	}
	writeJSON(ctx, xhttp.StatusOK, healthResponse{Status: "ok", Checks: checks})
}
