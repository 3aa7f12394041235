package cron

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/subledger/billing-engine/internal/services/ports"
	"go.uber.org/zap"
)

// MaintenanceHandler handles cron job endpoints for the consistency
// repair engine and operational maintenance commands
type MaintenanceHandler struct {
	maintenanceService ports.MaintenanceService
	logger             *zap.Logger
	cronSecret         string
}

// NewMaintenanceHandler creates a new maintenance cron handler
func NewMaintenanceHandler(
	maintenanceService ports.MaintenanceService,
	logger *zap.Logger,
	cronSecret string,
) *MaintenanceHandler {
	return &MaintenanceHandler{
		maintenanceService: maintenanceService,
		logger:             logger,
		cronSecret:         cronSecret,
	}
}

// RepairCheckResponse represents one repair check in the response
type RepairCheckResponse struct {
	Name      string `json:"name"`
	Found     int    `json:"found"`
	Fixed     int    `json:"fixed"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// RepairResponse represents the response from a consistency repair pass
type RepairResponse struct {
	Success    bool                  `json:"success"`
	TotalFound int                   `json:"total_found"`
	TotalFixed int                   `json:"total_fixed"`
	Checks     []RepairCheckResponse `json:"checks"`
	RanAt      string                `json:"ran_at"`
}

// RepairConsistency handles the POST /cron/repair-consistency endpoint
func (h *MaintenanceHandler) RepairConsistency(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Repair cron job triggered",
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

	report, err := h.maintenanceService.RepairConsistency(context.Background())
	if err != nil {
		h.logger.Error("Consistency repair failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := RepairResponse{
		Success:    true,
		TotalFound: report.TotalFound,
		TotalFixed: report.TotalFixed,
		Checks:     make([]RepairCheckResponse, len(report.Checks)),
		RanAt:      report.RanAt.Format(time.RFC3339),
	}
	for i, c := range report.Checks {
		resp.Checks[i] = RepairCheckResponse{
			Name:      c.Name,
			Found:     c.Found,
			Fixed:     c.Fixed,
			Remaining: c.Remaining,
			Error:     c.Error,
		}
		if c.Error != "" {
			resp.Success = false
		}
	}

	h.logger.Info("Consistency repair completed",
		zap.Int("total_found", report.TotalFound),
		zap.Int("total_fixed", report.TotalFixed),
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

// StatusReport handles the GET /cron/status-report endpoint
func (h *MaintenanceHandler) StatusReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	if !h.authenticateRequest(r) {
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	report, err := h.maintenanceService.StatusReport(r.Context())
	if err != nil {
		h.logger.Error("Status report failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success":       true,
		"contracts":     report.Contracts,
		"subscriptions": report.Subscriptions,
		"due_schedules": report.DueSchedules,
		"invoices":      report.Invoices,
		"open_items":    report.OpenItems,
		"generated_at":  time.Now().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// ClearBusinessData handles the POST /cron/clear-business-data endpoint.
// Destructive; requires confirm=true in addition to authentication.
func (h *MaintenanceHandler) ClearBusinessData(w http.ResponseWriter, r *http.Request) {
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

	if r.URL.Query().Get("confirm") != "true" {
		h.respondError(w, http.StatusBadRequest, "confirm=true is required")
		return
	}

	if err := h.maintenanceService.ClearBusinessData(context.Background()); err != nil {
		h.logger.Error("Clear business data failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Warn("Business data cleared",
		zap.String("remote_addr", r.RemoteAddr),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"success":    true,
		"cleared_at": time.Now().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// authenticateRequest verifies the cron request is authorized
func (h *MaintenanceHandler) authenticateRequest(r *http.Request) bool {
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
func (h *MaintenanceHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
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
