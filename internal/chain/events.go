package chain

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	// A doctor or researcher asked a patient for access to a verification
	// result.
	VerificationRequested EventType = "verification_requested"
	// The patient granted the request.
	VerificationApproved EventType = "verification_approved"
	// A genomic record (or its proof) was anchored on-chain.
	RecordAnchored EventType = "record_anchored"
)

// Event is one typed on-chain occurrence relevant to the notification layer.
type Event struct {
	Type        EventType       `json:"type"`
	PatientID   string          `json:"patientId,omitempty"`
	RequesterID string          `json:"requesterId,omitempty"`
	RecordID    string          `json:"recordId,omitempty"`
	TxHash      string          `json:"txHash,omitempty"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	At          time.Time       `json:"at"`
}

// Source is the boundary to the blockchain listener. The real implementation
// is an external system; this layer only drains its event channel.
type Source interface {
	Events() <-chan Event
}
