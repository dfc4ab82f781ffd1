package verify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/internal/notify"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// Handler exposes code issuing and checking for channel verification.
type Handler struct {
	store  *Store
	sender notify.EmailSender
	logger *logging.Logger
}

func NewHandler(store *Store, sender notify.EmailSender, logger *logging.Logger) *Handler {
	if store == nil {
		panic("verify: handler store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, sender: sender, logger: logger}
}

type issueRequest struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
}

// HandleIssue is POST /verify/codes. The code is delivered out of band and
// never returned in the response.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "subjectId and email are required")
		return
	}

	code, err := h.store.Issue(r.Context(), req.SubjectID)
	if err != nil {
		h.logger.Error("verification code issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue verification code")
		return
	}

	if h.sender != nil {
		msg := notify.EmailMessage{
			To:      req.Email,
			Subject: "Your verification code",
			Body:    "Your BrightPath verification code is " + code + ". It expires shortly and can be used once.",
		}
		if err := h.sender.Send(r.Context(), msg); err != nil {
			h.logger.Error("verification code email failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to deliver verification code")
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type checkRequest struct {
	SubjectID string `json:"subjectId"`
	Code      string `json:"code"`
}

// HandleCheck is POST /verify/codes/check.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SubjectID) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "subjectId and code are required")
		return
	}

	ok, err := h.store.Check(r.Context(), req.SubjectID, req.Code)
	if errors.Is(err, ErrTooManyAttempts) {
		writeError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
		return
	}
	if err != nil {
		h.logger.Error("verification check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check verification code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": ok})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
