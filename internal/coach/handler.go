package coach

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

const maxRequestBody = 64 * 1024

// Handler exposes the coaching pipeline over HTTP.
type Handler struct {
	supervisor *Supervisor
	analyzer   *SelfScoreAnalyzer
	logger     *logging.Logger
}

func NewHandler(supervisor *Supervisor, analyzer *SelfScoreAnalyzer, logger *logging.Logger) *Handler {
	if supervisor == nil {
		panic("coach: handler supervisor cannot be nil")
	}
	if analyzer == nil {
		panic("coach: handler analyzer cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{supervisor: supervisor, analyzer: analyzer, logger: logger}
}

// HandleQuery is POST /coach/query.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		writeError(w, http.StatusBadRequest, "subjectId is required")
		return
	}
	if strings.TrimSpace(req.Message.Text) == "" {
		writeError(w, http.StatusBadRequest, "message.text is required")
		return
	}

	result := h.supervisor.HandleQuery(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// HandleSelfScores is POST /coach/self-scores.
func (h *Handler) HandleSelfScores(w http.ResponseWriter, r *http.Request) {
	var sub SelfScoreSubmission
	if !decodeBody(w, r, &sub) {
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), sub)
	if err != nil {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Err == nil {
			writeError(w, http.StatusBadRequest, appErr.Message)
			return
		}
		h.logger.Error("self-score submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process self-scores")
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
