package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"chatforge/internal/domain/models"
	"chatforge/internal/domain/services"
)

type BillingHandler struct {
	service    services.PaymentService
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

func NewBillingHandler(service services.PaymentService, successURL, cancelURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		service:    service,
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}
}

func (h *BillingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/billing/checkout", h.CreateCheckout)
	mux.HandleFunc("/api/billing/subscription", h.Subscription)
	mux.HandleFunc("/api/billing/webhook", h.Webhook)
}

func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AccountID int64  `json:"account_id"`
		Plan      string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == 0 || req.Plan == "" {
		http.Error(w, "account_id and plan are required", http.StatusBadRequest)
		return
	}

	url, sessionID, err := h.service.CreateCheckoutSession(r.Context(), req.AccountID, models.PlanTier(req.Plan), h.successURL, h.cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "account_id", req.AccountID)
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"checkout_url": url,
		"session_id":   sessionID,
	})
}

func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil || accountID == 0 {
		http.Error(w, "account_id is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sub, err := h.service.GetSubscription(r.Context(), accountID)
		if err != nil {
			http.Error(w, "subscription not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sub)

	case http.MethodDelete:
		cancelAtPeriodEnd, _ := strconv.ParseBool(r.URL.Query().Get("at_period_end"))
		if err := h.service.CancelSubscription(r.Context(), accountID, cancelAtPeriodEnd); err != nil {
			h.logger.Error("failed to cancel subscription", "error", err, "account_id", accountID)
			http.Error(w, "failed to cancel subscription", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload); err != nil {
		h.logger.Error("webhook not processed", "error", err)
		http.Error(w, "webhook not processed", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
