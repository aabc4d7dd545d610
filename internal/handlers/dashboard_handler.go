package handlers

import (
	"net/http"

	"invoicely-backend/internal/services"
)

type DashboardHandler struct {
	Service *services.DashboardService
}

func NewDashboardHandler(s *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{Service: s}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	userID, ok := requestUserID(w, r)
	if !ok {
		return
	}

	dash, err := h.Service.Get(r.Context(), workspaceID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
