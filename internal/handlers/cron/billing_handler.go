package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/subledger/billing-engine/internal/services/ports"
	apperrors "github.com/subledger/billing-engine/pkg/errors"
	"go.uber.org/zap"
)

// BillingHandler handles cron job endpoints for invoice batch runs
type BillingHandler struct {
	billingService   ports.BillingService
	logger           *zap.Logger
	cronSecret       string // Secret token for authenticating cron requests
	includeBackdated bool   // Default for include_all_previous_periods when the request omits it
}

// NewBillingHandler creates a new billing cron handler
func NewBillingHandler(
	billingService ports.BillingService,
	logger *zap.Logger,
	cronSecret string,
	includeBackdated bool,
) *BillingHandler {
	return &BillingHandler{
		billingService:   billingService,
		logger:           logger,
		cronSecret:       cronSecret,
		includeBackdated: includeBackdated,
	}
}

// RunBillingRequest represents the request body for an invoice batch run
type RunBillingRequest struct {
	BillingDate               *string `json:"billing_date"`                 // Optional: ISO date string, defaults to today
	IncludeAllPreviousPeriods *bool   `json:"include_all_previous_periods"` // Optional: defaults to the configured value
}

// RunBillingResponse represents the response from an invoice batch run
type RunBillingResponse struct {
	Success          bool     `json:"success"`
	BillingDate      string   `json:"billing_date"`
	ExpectedCount    int      `json:"expected_count"`
	ProcessedCount   int      `json:"processed_count"`
	CreatedInvoices  int      `json:"created_invoices"`
	CreatedOpenItems int      `json:"created_open_items"`
	TotalAmount      string   `json:"total_amount"`
	Message          string   `json:"message"`
	Errors           []string `json:"errors,omitempty"`
	ProcessedAt      string   `json:"processed_at"`
}

// RunBilling handles the POST /cron/run-billing endpoint. The batch run
// continues past client disconnects, so a background context is used.
func (h *BillingHandler) RunBilling(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Billing cron job triggered",
		zap.String("method", r.Method),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Parse request body (optional parameters)
	var req RunBillingRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Failed to parse request body",
				zap.Error(err),
			)
			// Continue with defaults if parsing fails
		}
	}

	billingDate := time.Now()
	if req.BillingDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.BillingDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid billing_date format: %v", err))
			return
		}
		billingDate = parsed
	}

	includeAll := h.includeBackdated
	if req.IncludeAllPreviousPeriods != nil {
		includeAll = *req.IncludeAllPreviousPeriods
	}

	ctx := context.Background()
	result, err := h.billingService.RunInvoiceBatch(ctx, billingDate, includeAll)
	if err != nil {
		h.logger.Error("Invoice batch run failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RunBillingResponse{
		Success:          len(result.Errors) == 0,
		BillingDate:      result.BillingDate.Format("2006-01-02"),
		ExpectedCount:    result.ExpectedCount,
		ProcessedCount:   result.ProcessedCount,
		CreatedInvoices:  result.CreatedInvoices,
		CreatedOpenItems: result.CreatedOpenItems,
		TotalAmount:      result.TotalAmount.StringFixed(2),
		Message:          result.Message,
		ProcessedAt:      time.Now().Format(time.RFC3339),
	}

	if len(result.Errors) > 0 {
		resp.Errors = make([]string, len(result.Errors))
		for i, e := range result.Errors {
			resp.Errors[i] = fmt.Sprintf("%s: %s", e.DueScheduleID, e.Error)
		}
	}

	h.logger.Info("Invoice batch run completed",
		zap.Int("expected", result.ExpectedCount),
		zap.Int("processed", result.ProcessedCount),
		zap.Int("failed", len(result.Errors)),
	)

	w.Header().Set("Content-Type", "application/json")
	if resp.Success {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusPartialContent) // 206 indicates partial success
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Preview handles the GET /cron/billing-preview endpoint; it reports the
// scope a run would cover without mutating anything
func (h *BillingHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	billingDate, includeAll, err := h.parseScopeParams(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	scope, err := h.billingService.AnalyzeScope(r.Context(), billingDate, includeAll)
	if err != nil {
		h.logger.Error("Billing preview failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	schedules := make([]map[string]interface{}, len(scope.DueSchedules))
	for i, ds := range scope.DueSchedules {
		schedules[i] = map[string]interface{}{
			"id":              ds.ID,
			"number":          ds.Number,
			"subscription_id": ds.SubscriptionID,
			"due_date":        ds.DueDate.Format("2006-01-02"),
			"amount":          ds.Amount.StringFixed(2),
			"status":          string(ds.Status),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success":                      true,
		"billing_date":                 scope.BillingDate.Format("2006-01-02"),
		"include_all_previous_periods": scope.IncludeAllPreviousPeriods,
		"schedule_count":               len(scope.DueSchedules),
		"estimated_total":              scope.EstimatedTotal.StringFixed(2),
		"due_schedules":                schedules,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// CanRun handles the GET /cron/billing-can-run endpoint
func (h *BillingHandler) CanRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	billingDate, includeAll, err := h.parseScopeParams(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	canRun, err := h.billingService.CanRun(r.Context(), billingDate, includeAll)
	if err != nil {
		h.logger.Error("Billing can-run check failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success":      true,
		"billing_date": billingDate.Format("2006-01-02"),
		"can_run":      canRun,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// CancelInvoiceRequest represents the request body for an invoice cancellation
type CancelInvoiceRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// CancelInvoice handles the POST /cron/cancel-invoice endpoint; it
// cancels the invoice and its open items together
func (h *BillingHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CancelInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InvoiceID == "" {
		h.respondError(w, http.StatusBadRequest, "invoice_id is required")
		return
	}

	invoice, err := h.billingService.CancelInvoice(r.Context(), req.InvoiceID)
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			h.respondError(w, http.StatusNotFound, err.Error())
		case apperrors.IsConflict(err):
			h.respondError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Invoice cancellation failed", zap.Error(err))
			h.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.logger.Info("Invoice cancelled via cron surface",
		zap.String("invoice", invoice.Number),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success": true,
		"invoice": invoice.Number,
		"status":  string(invoice.Status),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *BillingHandler) parseScopeParams(r *http.Request) (time.Time, bool, error) {
	billingDate := time.Now()
	if dateParam := r.URL.Query().Get("billing_date"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid billing_date format: %v", err)
		}
		billingDate = parsed
	}

	includeAll := h.includeBackdated
	if includeParam := r.URL.Query().Get("include_all_previous_periods"); includeParam != "" {
		includeAll = includeParam == "true" || includeParam == "1"
	}

	return billingDate, includeAll, nil
}

// authenticateRequest verifies the cron request is authorized
func (h *BillingHandler) authenticateRequest(r *http.Request) bool {
	cronSecret := r.Header.Get("X-Cron-Secret")
	if cronSecret != "" && cronSecret == h.cronSecret {
		return true
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "Bearer "+h.cronSecret {
		return true
	}

	return false
}

// respondError sends an error response
func (h *BillingHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *BillingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	}

	json.NewEncoder(w).Encode(resp)
}
