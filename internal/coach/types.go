package coach

import "time"

// QueryIntent classifies what the patient is asking for.
type QueryIntent string

const (
	IntentFindLocation  QueryIntent = "find_location"
	IntentGeneralChat   QueryIntent = "general_chat"
	IntentAskAboutData  QueryIntent = "ask_about_data"
	IntentHealthInquiry QueryIntent = "health_inquiry"
	IntentOther         QueryIntent = "other"
)

// ValidIntent reports whether the classifier produced a known intent value.
func ValidIntent(intent QueryIntent) bool {
	switch intent {
	case IntentFindLocation, IntentGeneralChat, IntentAskAboutData, IntentHealthInquiry, IntentOther:
		return true
	default:
		return false
	}
}

// ParsedQuery is the structured reading of a free-text message. Produced once
// per request and immutable afterward.
type ParsedQuery struct {
	Intent         QueryIntent       `json:"intent"`
	Entities       map[string]string `json:"entities"`
	SafeForTooling bool              `json:"safe_for_tooling"`
	Confidence     float64           `json:"confidence"`
}

// ValidationStatus records how the response validator disposed of a reply.
type ValidationStatus string

const (
	ValidationApproved      ValidationStatus = "approved"
	ValidationNeedsRevision ValidationStatus = "needs_revision"
	ValidationRejected      ValidationStatus = "rejected"
	ValidationSkipped       ValidationStatus = "skipped"
)

// IncomingMessage is the patient's message plus the time it was composed,
// which may be long before it reaches us via an offline queue.
type IncomingMessage struct {
	Text   string    `json:"text"`
	SentAt time.Time `json:"sentAt"`
}

// QueryRequest is the chat endpoint contract. SubjectID arrives pre-validated
// by the auth collaborator; this core trusts it.
type QueryRequest struct {
	Message            IncomingMessage `json:"message"`
	SubjectID          string          `json:"subjectId"`
	SessionID          string          `json:"sessionId,omitempty"`
	RequiresValidation bool            `json:"requiresValidation,omitempty"`
}

// SupervisorResult is returned to the caller; not persisted by this subsystem.
type SupervisorResult struct {
	Text             string           `json:"text"`
	SessionID        string           `json:"sessionId"`
	ModelUsed        string           `json:"modelUsed"`
	ValidationStatus ValidationStatus `json:"validationStatus"`
	ToolsUsed        []string         `json:"toolsUsed"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
}
