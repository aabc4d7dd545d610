package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"invoicely-backend/internal/services"
)

type PaymentHandler struct {
	Service *services.PaymentService
}

func NewPaymentHandler(s *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

// CreateLink issues a gateway payment link for the invoice.
func (h *PaymentHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	invoiceID, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}

	link, err := h.Service.CreateLink(r.Context(), workspaceID, invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

// ListLinks returns the payment links issued for the invoice.
func (h *PaymentHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := pathUUID(w, r, "workspaceId")
	if !ok {
		return
	}
	invoiceID, ok := pathUUID(w, r, "invoiceId")
	if !ok {
		return
	}

	links, err := h.Service.ListLinks(r.Context(), workspaceID, invoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

// Webhook receives gateway events. The body signature is verified before
// any processing; failures are reported as 400 so the gateway retries.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeBadRequest(w, "Cannot read body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(body, signature) {
		log.Printf("[Payment] webhook signature mismatch")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid signature"})
		return
	}

	var event struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		writeBadRequest(w, "Invalid webhook payload")
		return
	}

	if err := h.Service.ProcessWebhook(r.Context(), event.Event, event.Payload); err != nil {
		log.Printf("[Payment] webhook %s failed: %v", event.Event, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
