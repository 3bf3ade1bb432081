package router

import "encoding/json"

// ClientMessage is the wire envelope for every client-to-server event.
type ClientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server event names.
const (
	EventJoinPatientRoom       = "join:patient-room"
	EventJoinDoctorRoom        = "join:doctor-room"
	EventJoinPatientMonitoring = "join:patient-monitoring"
	EventJoinResearchUpdates   = "join:research-updates"
	EventSubscribeProof        = "subscribe:proof-progress"
	EventSubscribeVerification = "subscribe:verification-requests"
	EventMessageSend           = "message:send"
	EventStatusUpdate          = "status:update"
	EventPing                  = "ping"
)

// DirectMessage is the payload delivered to a recipient on message:received
// and echoed back to the sender on message:sent.
type DirectMessage struct {
	SenderID    string `json:"senderId"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message"`
	Type        string `json:"type,omitempty"`
	SentAt      int64  `json:"sentAt"`
}

// StatusUpdate is the payload of status:updated.
type StatusUpdate struct {
	UserID    string `json:"userId"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Pong is the reply to a client ping.
type Pong struct {
	Time int64 `json:"time"`
}
