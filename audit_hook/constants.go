package audithook

// Action constants for audit events.
const (
	// Stream actions
	ActionStreamCreated   = "stream.created"
	ActionStreamPaused    = "stream.paused"
	ActionStreamResumed   = "stream.resumed"
	ActionStreamCancelled = "stream.cancelled"
	ActionStreamFinalized = "stream.finalized"

	// Position actions
	ActionPositionSubscribed      = "position.subscribed"
	ActionPositionWithdrawn       = "position.withdrawn"
	ActionPositionExited          = "position.exited"
	ActionPositionCancelledExit   = "position.cancelled_exit"
	ActionPositionOperatorUpdated = "position.operator_updated"

	// Protocol actions
	ActionParamsUpdated = "params.updated"
)

// Resource constants for audit events.
const (
	ResourceStream   = "stream"
	ResourcePosition = "position"
	ResourceParams   = "params"
)

// Category constants for audit events.
const (
	CategoryStream     = "stream"
	CategoryTrading    = "trading"
	CategorySettlement = "settlement"
	CategoryGovernance = "governance"
	CategoryAccess     = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
