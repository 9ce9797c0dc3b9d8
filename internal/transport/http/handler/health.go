package handler

import "net/http"

// HealthHandler answers liveness checks.
type HealthHandler struct {
	name string
}

func NewHealthHandler(name string) *HealthHandler { return &HealthHandler{name: name} }

func (h *HealthHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, succeed(h.name+" is running"))
}
