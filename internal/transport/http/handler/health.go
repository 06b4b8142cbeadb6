package handler

import (
	"net/http"

	"github.com/estore-auth/internal/transport/http/respond"
)

// HealthHandler handles the root and health-check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, MessageEnvelope{Message: "Hello API"})
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
}
