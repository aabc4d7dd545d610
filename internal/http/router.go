package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invoicely-backend/internal/handlers"
	"invoicely-backend/internal/middleware"
	"invoicely-backend/internal/monitoring"
	"invoicely-backend/internal/services"
)

// NewRouter assembles the full route table. Public routes carry no auth;
// everything under /api requires a valid token, and workspace-scoped routes
// additionally require membership.
func NewRouter(
	authHandler *handlers.AuthHandler,
	workspaceHandler *handlers.WorkspaceHandler,
	clientHandler *handlers.ClientHandler,
	invoiceHandler *handlers.InvoiceHandler,
	dashboardHandler *handlers.DashboardHandler,
	paymentHandler *handlers.PaymentHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	workspaces *services.WorkspaceService,
	hub *monitoring.Hub,
	statsCollector *monitoring.StatsCollector,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Public invoice view (the invoice id is the capability) and the
	// payment gateway webhook.
	r.HandleFunc("/public/invoices/{invoiceId}", invoiceHandler.PublicView).Methods("GET")
	r.HandleFunc("/webhooks/razorpay", paymentHandler.Webhook).Methods("POST")

	// Protected API routes - current user and workspaces
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/workspaces", workspaceHandler.Create).Methods("POST")
	api.HandleFunc("/workspaces", workspaceHandler.List).Methods("GET")

	// Workspace-scoped routes behind the membership fence
	ws := api.PathPrefix("/workspaces/{workspaceId}").Subrouter()
	ws.Use(requireMembership(workspaces))
	ws.HandleFunc("", workspaceHandler.Get).Methods("GET")
	ws.HandleFunc("", workspaceHandler.Update).Methods("PUT")
	ws.HandleFunc("/activate", workspaceHandler.Activate).Methods("POST")

	ws.HandleFunc("/clients", clientHandler.Create).Methods("POST")
	ws.HandleFunc("/clients", clientHandler.List).Methods("GET")
	ws.HandleFunc("/clients/{clientId}", clientHandler.Get).Methods("GET")
	ws.HandleFunc("/clients/{clientId}", clientHandler.Update).Methods("PUT")
	ws.HandleFunc("/clients/{clientId}", clientHandler.Delete).Methods("DELETE")
	ws.HandleFunc("/clients/{clientId}/archive", clientHandler.Archive).Methods("POST")

	ws.HandleFunc("/invoices", invoiceHandler.Create).Methods("POST")
	ws.HandleFunc("/invoices", invoiceHandler.List).Methods("GET")
	ws.HandleFunc("/invoices/sweep-overdue", invoiceHandler.SweepOverdue).Methods("POST")
	ws.HandleFunc("/invoices/{invoiceId}", invoiceHandler.Get).Methods("GET")
	ws.HandleFunc("/invoices/{invoiceId}", invoiceHandler.Update).Methods("PUT")
	ws.HandleFunc("/invoices/{invoiceId}", invoiceHandler.Delete).Methods("DELETE")
	ws.HandleFunc("/invoices/{invoiceId}/items", invoiceHandler.AddItem).Methods("POST")
	ws.HandleFunc("/invoices/{invoiceId}/items/{itemId}", invoiceHandler.UpdateItem).Methods("PUT")
	ws.HandleFunc("/invoices/{invoiceId}/items/{itemId}", invoiceHandler.RemoveItem).Methods("DELETE")
	ws.HandleFunc("/invoices/{invoiceId}/transition", invoiceHandler.Transition).Methods("POST")
	ws.HandleFunc("/invoices/{invoiceId}/send", invoiceHandler.Send).Methods("POST")
	ws.HandleFunc("/invoices/{invoiceId}/pdf", invoiceHandler.DownloadPDF).Methods("GET")
	ws.HandleFunc("/invoices/{invoiceId}/payment-links", paymentHandler.CreateLink).Methods("POST")
	ws.HandleFunc("/invoices/{invoiceId}/payment-links", paymentHandler.ListLinks).Methods("GET")

	ws.HandleFunc("/dashboard", dashboardHandler.Get).Methods("GET")

	// Monitoring: live invoice events and system stats
	api.HandleFunc("/monitoring/events", hub.HandleWebSocket)
	api.HandleFunc("/monitoring/stats", statsCollector.HandleStats).Methods("GET")

	// Health endpoints, unauthenticated for liveness checks
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requireMembership rejects callers that do not belong to the workspace in
// the path. It runs after Authenticate.
func requireMembership(workspaces *services.WorkspaceService) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := middleware.GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			workspaceID, err := uuid.Parse(mux.Vars(r)["workspaceId"])
			if err != nil {
				http.Error(w, "Invalid workspace id", http.StatusBadRequest)
				return
			}
			member, err := workspaces.IsMember(r.Context(), workspaceID, userID)
			if err != nil {
				http.Error(w, "Membership check failed", http.StatusInternalServerError)
				return
			}
			if !member {
				http.Error(w, "Not a member of this workspace", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
