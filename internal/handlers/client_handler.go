package handlers

import (
	"encoding/json"
	"net/http"

	"invoicely-backend/internal/models"
	"invoicely-backend/internal/services"
)

type ClientHandler struct {
	Service *services.ClientService
}

func NewClientHandler(s *services.ClientService) *ClientHandler {
	return &ClientHandler{Service: s}
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	var req models.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	client, err := h.Service.Create(r.Context(), workspaceID, &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	clients, err := h.Service.List(r.Context(), workspaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}
	client, err := h.Service.Get(r.Context(), workspaceID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}
	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	client, err := h.Service.Update(r.Context(), workspaceID, id, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), workspaceID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClientHandler) Archive(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "clientId")
	if !ok {
		return
	}
	client, err := h.Service.Archive(r.Context(), workspaceID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}
