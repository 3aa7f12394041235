package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/subledger/billing-engine/internal/services/ports"
	"go.uber.org/zap"
)

// SweepHandler handles cron job endpoints for subscription and due
// schedule sweeps: auto-renewal, expiry, and overdue reclassification
type SweepHandler struct {
	subscriptionService ports.SubscriptionService
	dueScheduleService  ports.DueScheduleService
	logger              *zap.Logger
	cronSecret          string
}

// NewSweepHandler creates a new sweep cron handler
func NewSweepHandler(
	subscriptionService ports.SubscriptionService,
	dueScheduleService ports.DueScheduleService,
	logger *zap.Logger,
	cronSecret string,
) *SweepHandler {
	return &SweepHandler{
		subscriptionService: subscriptionService,
		dueScheduleService:  dueScheduleService,
		logger:              logger,
		cronSecret:          cronSecret,
	}
}

// SweepResponse represents the response from a subscription sweep
type SweepResponse struct {
	Success     bool     `json:"success"`
	Examined    int      `json:"examined"`
	Processed   int      `json:"processed"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
	ProcessedAt string   `json:"processed_at"`
}

// ProcessAutoRenewals handles the POST /cron/process-auto-renewals endpoint
func (h *SweepHandler) ProcessAutoRenewals(w http.ResponseWriter, r *http.Request) {
	h.runSubscriptionSweep(w, r, "auto-renewal", h.subscriptionService.ProcessAutoRenewals)
}

// ProcessExpired handles the POST /cron/process-expired endpoint
func (h *SweepHandler) ProcessExpired(w http.ResponseWriter, r *http.Request) {
	h.runSubscriptionSweep(w, r, "expiry", h.subscriptionService.ProcessExpired)
}

func (h *SweepHandler) runSubscriptionSweep(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	sweep func(ctx context.Context, asOf time.Time) (*ports.SweepResult, error),
) {
	h.logger.Info("Sweep cron job triggered",
		zap.String("sweep", name),
		zap.String("remote_addr", r.RemoteAddr),
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

	asOf, err := h.parseAsOf(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := sweep(context.Background(), asOf)
	if err != nil {
		h.logger.Error("Sweep failed", zap.String("sweep", name), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := SweepResponse{
		Success:     result.Failed == 0,
		Examined:    result.Examined,
		Processed:   result.Processed,
		Failed:      result.Failed,
		ProcessedAt: time.Now().Format(time.RFC3339),
	}

	if len(result.Errors) > 0 {
		resp.Errors = make([]string, len(result.Errors))
		for i, e := range result.Errors {
			resp.Errors[i] = fmt.Sprintf("%s: %s", e.SubscriptionID, e.Error)
		}
	}

	h.logger.Info("Sweep completed",
		zap.String("sweep", name),
		zap.Int("examined", result.Examined),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)

	w.Header().Set("Content-Type", "application/json")
	if resp.Success {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusPartialContent)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ProcessOverdue handles the POST /cron/process-overdue endpoint. It
// reclassifies past-due pending schedules as overdue.
func (h *SweepHandler) ProcessOverdue(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Overdue cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
	)

	if r.Method != http.MethodPost {
		h.respondError(w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	asOf, err := h.parseAsOf(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.dueScheduleService.ProcessOverdue(context.Background(), asOf)
	if err != nil {
		h.logger.Error("Overdue sweep failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("Overdue sweep completed",
		zap.Int("examined", result.Examined),
		zap.Int("marked", result.Marked),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success":      true,
		"examined":     result.Examined,
		"marked":       result.Marked,
		"processed_at": time.Now().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *SweepHandler) parseAsOf(r *http.Request) (time.Time, error) {
	asOf := time.Now()
	if dateParam := r.URL.Query().Get("as_of"); dateParam != "" {
		parsed, err := time.Parse("2006-01-02", dateParam)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid as_of format: %v", err)
		}
		asOf = parsed
	}
	return asOf, nil
}

// authenticateRequest verifies the cron request is authorized
func (h *SweepHandler) authenticateRequest(r *http.Request) bool {
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
func (h *SweepHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
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
