package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/middleware"
	"invoicely-backend/internal/models"
	"invoicely-backend/internal/services"
)

type InvoiceHandler struct {
	Service  *services.InvoiceService
	Renderer services.DocumentRenderer
}

func NewInvoiceHandler(s *services.InvoiceService, renderer services.DocumentRenderer) *InvoiceHandler {
	return &InvoiceHandler{Service: s, Renderer: renderer}
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.Create(r.Context(), workspaceID, userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}

	var filter models.InvoiceFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := billing.Status(s)
		if !status.Valid() {
			writeBadRequest(w, "Invalid status filter")
			return
		}
		filter.Status = status
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeBadRequest(w, "Invalid from date, want YYYY-MM-DD")
			return
		}
		filter.IssuedFrom = &t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeBadRequest(w, "Invalid to date, want YYYY-MM-DD")
			return
		}
		filter.IssuedTo = &t
	}

	invoices, err := h.Service.List(r.Context(), workspaceID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	inv, err := h.Service.Get(r.Context(), workspaceID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	var req models.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.Update(r.Context(), workspaceID, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), workspaceID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem appends one line item to a draft invoice.
func (h *InvoiceHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	var req models.MutateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.AddItem(r.Context(), workspaceID, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// UpdateItem edits one line item of a draft invoice.
func (h *InvoiceHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	var req models.MutateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.UpdateItem(r.Context(), workspaceID, id, itemID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// RemoveItem deletes one line item of a draft invoice. The version travels
// in the query string since DELETE bodies do not survive every proxy.
func (h *InvoiceHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "itemId")
	if !ok {
		return
	}
	version, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
	if err != nil {
		writeBadRequest(w, "Invalid version")
		return
	}

	inv, err := h.Service.RemoveItem(r.Context(), workspaceID, id, itemID, version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// Transition applies a status change at the version the caller read.
func (h *InvoiceHandler) Transition(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.Transition(r.Context(), workspaceID, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type sendRequest struct {
	Version int64 `json:"version"`
}

// Send emails the invoice to its client and marks it SENT.
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.Service.Send(r.Context(), workspaceID, id, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DownloadPDF streams the invoice document.
func (h *InvoiceHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	inv, err := h.Service.Get(r.Context(), workspaceID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	pdfBytes, err := h.Renderer.Render(inv)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+inv.InvoiceNumber+".pdf")
	w.Write(pdfBytes)
}

// SweepOverdue flips every due SENT/VIEWED invoice to OVERDUE.
func (h *InvoiceHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	marked, err := h.Service.SweepOverdue(r.Context(), workspaceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_overdue": marked})
}

// PublicView serves the client-facing invoice and records the view. No
// authentication; the invoice id is the capability.
func (h *InvoiceHandler) PublicView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}
	inv, err := h.Service.MarkViewed(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
