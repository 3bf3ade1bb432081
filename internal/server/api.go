package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/helixchain/realtime/internal/chain"
)

// The internal API is how the platform's REST services feed this layer:
// enqueueing proof jobs, inspecting failed ones and injecting chain events.
// It is mounted under /internal/ and must not be exposed past the edge proxy.

type enqueueRequest struct {
	UserID    string          `json:"userId"`
	TraitType string          `json:"traitType"`
	Input     json.RawMessage `json:"input,omitempty"`
}

type enqueueResponse struct {
	JobID string `json:"jobId"`
}

func (a *App) handleEnqueueProof(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.TraitType == "" {
		http.Error(w, "userId and traitType are required", http.StatusBadRequest)
		return
	}

	job, err := a.queue.Enqueue(r.Context(), req.UserID, req.TraitType, req.Input)
	if err != nil {
		a.logger.Error("Failed to enqueue proof job", slog.Any("error", err))
		http.Error(w, "failed to enqueue job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, enqueueResponse{JobID: job.ID})
}

func (a *App) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := a.queue.Job(r.Context(), id)
	if err != nil {
		a.logger.Error("Failed to load job", slog.String("jobID", id), slog.Any("error", err))
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *App) handleFailedJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.queue.FailedJobs(r.Context())
	if err != nil {
		a.logger.Error("Failed to list failed jobs", slog.Any("error", err))
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *App) handleChainEvent(w http.ResponseWriter, r *http.Request) {
	var ev chain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if ev.Type == "" {
		http.Error(w, "type is required", http.StatusBadRequest)
		return
	}
	if !a.chainSink.Publish(ev) {
		a.logger.Warn("Chain event dropped, bridge not draining", slog.String("type", string(ev.Type)))
	}
	w.WriteHeader(http.StatusAccepted)
}

type presenceResponse struct {
	ConnectedUsers int `json:"connectedUsers"`
}

func (a *App) handlePresence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, presenceResponse{ConnectedUsers: a.registry.CountDistinctUsers()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
