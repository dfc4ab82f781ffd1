package events

// Event types emitted through the outbox. Versioned so consumers can evolve
// independently of producers.
const (
	TypeMessageProcessed = "coach.message_processed.v1"
	TypeAnalytics        = "coach.analytics.v1"
	TypeScoresRecorded   = "coach.scores_recorded.v1"
	TypeAlertRaised      = "monitoring.alert_raised.v1"
	TypeSessionCompleted = "monitoring.session_completed.v1"
)
