package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoicely-backend/internal/billing"
	"invoicely-backend/internal/money"
	"invoicely-backend/internal/repositories"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors to HTTP statuses: unknown resources to 404,
// conflicts (stale versions, illegal transitions, uniqueness) to 409,
// semantic validation failures to 422, everything unexpected to 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, billing.ErrClientNotFound):
		status = http.StatusNotFound

	case errors.Is(err, billing.ErrStaleVersion),
		errors.Is(err, billing.ErrDuplicateInvoiceNumber),
		errors.Is(err, billing.ErrInvoiceNotEditable),
		errors.Is(err, repositories.ErrClientHasInvoices),
		billing.IsIllegalTransition(err):
		status = http.StatusConflict

	case errors.Is(err, billing.ErrInvalidDiscount),
		errors.Is(err, billing.ErrInvalidInvoiceTotals),
		errors.Is(err, billing.ErrNoLineItems),
		errors.Is(err, billing.ErrLineItemNotFound),
		errors.Is(err, billing.ErrInvalidLineItem),
		errors.Is(err, billing.ErrInvalidDueDate),
		errors.Is(err, billing.ErrInvalidInvoiceNumber),
		errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, money.ErrCurrencyMismatch):
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
