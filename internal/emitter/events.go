package emitter

// Server-to-client event names.
const (
	EventConnected      = "connected"
	EventPong           = "pong"
	EventServerShutdown = "server:shutdown"

	EventProofProgress = "proof:progress"
	EventProofComplete = "proof:complete"
	// EventProofCompleted is a legacy alias still consumed by older clients;
	// both names are emitted on terminal success.
	EventProofCompleted = "proof:completed"
	EventProofError     = "proof:error"
	EventProofFailed    = "proof:failed"

	EventVerificationRequest  = "verification:request"
	EventVerificationApproved = "verification:approved"
	EventDataUpdated          = "data:updated"

	EventMessageReceived = "message:received"
	EventMessageSent     = "message:sent"
	EventStatusUpdated   = "status:updated"
)
