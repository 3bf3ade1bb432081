package proofqueue

import (
	"encoding/json"
	"time"
)

// Job is one proof-generation request flowing through the queue. Attempts
// counts completed tries; the retry policy gives up once it reaches the
// configured maximum.
type Job struct {
	ID        string
	UserID    string
	TraitType string
	Input     json.RawMessage
	Attempts  int
	CreatedAt time.Time
}

// Proof is the result payload delivered on terminal success.
type Proof struct {
	JobID         string          `json:"jobId"`
	TraitType     string          `json:"traitType"`
	Proof         json.RawMessage `json:"proof"`
	PublicSignals []string        `json:"publicSignals,omitempty"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// Error code carried on terminal failure events.
const CodeGenerationFailed = "PROOF_GENERATION_FAILED"
