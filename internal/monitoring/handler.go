package monitoring

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// Handler exposes monitoring over HTTP: enqueue a session run, list active
// alerts, acknowledge one.
type Handler struct {
	queue  queueClient
	alerts *AlertStore
	logger *logging.Logger
}

func NewHandler(queue queueClient, alerts *AlertStore, logger *logging.Logger) *Handler {
	if queue == nil {
		panic("monitoring: handler queue cannot be nil")
	}
	if alerts == nil {
		panic("monitoring: handler alert store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{queue: queue, alerts: alerts, logger: logger}
}

// HandleEnqueueSession is POST /monitoring/sessions.
func (h *Handler) HandleEnqueueSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubjectID string `json:"subjectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "subjectId is required")
		return
	}

	req := SessionRequest{SubjectID: body.SubjectID, RequestedAt: time.Now().UTC()}
	payload, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode request")
		return
	}
	if err := h.queue.Send(r.Context(), string(payload)); err != nil {
		h.logger.Error("failed to enqueue monitoring session", "error", err, "subject_id", body.SubjectID)
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue session")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HandleListAlerts is GET /monitoring/alerts/{subjectID}.
func (h *Handler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "subjectID is required")
		return
	}

	alerts, err := h.alerts.ActiveAlerts(r.Context(), subjectID)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err, "subject_id", subjectID)
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// HandleAcknowledgeAlert is POST /monitoring/alerts/{alertID}/ack.
func (h *Handler) HandleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	ok, err := h.alerts.Acknowledge(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to acknowledge alert", "error", err, "alert_id", id)
		writeError(w, http.StatusInternalServerError, "failed to acknowledge alert")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "alert not found or already acknowledged")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
