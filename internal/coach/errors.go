package coach

import "fmt"

// SecurityError indicates a bundle or response failed PII or capability
// validation. Never retried automatically; the supervisor surfaces a fixed
// privacy message instead of the blocked content.
type SecurityError struct {
	Reason     string
	Violations []string
}

func (e *SecurityError) Error() string {
	if len(e.Violations) > 0 {
		return fmt.Sprintf("coach: security validation failed (%s): %v", e.Reason, e.Violations)
	}
	return fmt.Sprintf("coach: security validation failed: %s", e.Reason)
}

// LLMError indicates the model provider was unreachable or errored. Carries a
// user-safe message; the raw provider error stays in Err for logs only.
type LLMError struct {
	UserMessage string
	Err         error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("coach: llm failure: %v", e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// APIError indicates a named upstream dependency failed. IsOperational
// distinguishes transient faults (apologize and continue) from configuration
// defects that need a human.
type APIError struct {
	Service       string
	Message       string
	IsOperational bool
	Err           error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coach: %s api failure: %s", e.Service, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// AppError covers any other operational failure inside the pipeline.
type AppError struct {
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("coach: %s", e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }
