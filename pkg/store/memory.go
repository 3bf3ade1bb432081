package store

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// memoryJobStore backs store-less deployments and tests. Same retention
// semantics as the postgres store, minus durability.
type memoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*JobRecord
}

func NewMemoryJobs() JobStore {
	return &memoryJobStore{jobs: make(map[string]*JobRecord)}
}

func (s *memoryJobStore) Create(_ context.Context, job *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memoryJobStore) MarkActive(_ context.Context, id string, attempts int) error {
	return s.setStatus(id, JobActive, attempts, "")
}

func (s *memoryJobStore) MarkQueued(_ context.Context, id string, attempts int) error {
	return s.setStatus(id, JobQueued, attempts, "")
}

func (s *memoryJobStore) MarkFailed(_ context.Context, id string, attempts int, errMsg string) error {
	return s.setStatus(id, JobFailed, attempts, errMsg)
}

func (s *memoryJobStore) setStatus(id string, status JobStatus, attempts int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	job.Status = status
	job.Attempts = attempts
	job.LastError = sql.NullString{String: errMsg, Valid: errMsg != ""}
	job.UpdatedAt = time.Now()
	return nil
}

func (s *memoryJobStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *memoryJobStore) Get(_ context.Context, id string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (s *memoryJobStore) FailedJobs(_ context.Context) ([]*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	failed := make([]*JobRecord, 0)
	for _, job := range s.jobs {
		if job.Status == JobFailed {
			cp := *job
			failed = append(failed, &cp)
		}
	}
	sort.Slice(failed, func(i, j int) bool {
		return failed[i].UpdatedAt.After(failed[j].UpdatedAt)
	})
	return failed, nil
}
