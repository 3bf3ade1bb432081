package proofqueue

import (
	"log/slog"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/pkg/state"
)

// ProgressEvent is the payload of proof:progress.
type ProgressEvent struct {
	JobID     string `json:"jobId"`
	Progress  int    `json:"progress"`
	Stage     string `json:"stage,omitempty"`
	TraitType string `json:"traitType,omitempty"`
}

// CompleteEvent is the payload of proof:complete / proof:completed.
type CompleteEvent struct {
	JobID     string `json:"jobId"`
	TraitType string `json:"traitType"`
	Proof     *Proof `json:"proof"`
}

// ErrorEvent is the payload of proof:error / proof:failed.
type ErrorEvent struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Notifier forwards worker-reported job events into the event emitter. Every
// event fans out to the owner's personal room, the owner's patient room and
// the job-specific room: a client may be subscribed via any of them, and
// receiving the same event through more than one is expected.
type Notifier struct {
	logger  *slog.Logger
	emitter *emitter.Emitter
}

func NewNotifier(logger *slog.Logger, em *emitter.Emitter) *Notifier {
	return &Notifier{
		logger:  logger.With(slog.String("component", "proof_notifier")),
		emitter: em,
	}
}

func (n *Notifier) rooms(job *Job) []string {
	return []string{
		state.PersonalRoom(job.UserID),
		state.PatientRoom(job.UserID),
		state.ProofRoom(job.ID),
	}
}

func (n *Notifier) Progress(job *Job, pct int, stage string) {
	n.emitter.ToRooms(n.rooms(job), emitter.EventProofProgress, ProgressEvent{
		JobID:     job.ID,
		Progress:  pct,
		Stage:     stage,
		TraitType: job.TraitType,
	})
}

func (n *Notifier) Completed(job *Job, proof *Proof) {
	payload := CompleteEvent{JobID: job.ID, TraitType: job.TraitType, Proof: proof}
	rooms := n.rooms(job)
	n.emitter.ToRooms(rooms, emitter.EventProofComplete, payload)
	n.emitter.ToRooms(rooms, emitter.EventProofCompleted, payload)
	n.logger.Info("Proof job completed", slog.String("jobID", job.ID), slog.String("userID", job.UserID))
}

func (n *Notifier) Failed(job *Job, errMsg string) {
	payload := ErrorEvent{JobID: job.ID, Error: errMsg, Code: CodeGenerationFailed}
	rooms := n.rooms(job)
	n.emitter.ToRooms(rooms, emitter.EventProofError, payload)
	n.emitter.ToRooms(rooms, emitter.EventProofFailed, payload)
	n.logger.Warn("Proof job failed terminally", slog.String("jobID", job.ID), slog.String("error", errMsg))
}
