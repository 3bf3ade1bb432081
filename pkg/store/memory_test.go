package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixchain/realtime/pkg/store"
)

func TestMemoryJobLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryJobs()

	require.NoError(t, s.Create(ctx, &store.JobRecord{
		ID: "j1", UserID: "p1", TraitType: "BRCA1", Status: store.JobQueued,
	}))

	rec, err := s.Get(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, store.JobQueued, rec.Status)

	require.NoError(t, s.MarkActive(ctx, "j1", 1))
	rec, _ = s.Get(ctx, "j1")
	assert.Equal(t, store.JobActive, rec.Status)
	assert.Equal(t, 1, rec.Attempts)

	// Completed jobs are deleted.
	require.NoError(t, s.Delete(ctx, "j1"))
	rec, err = s.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemoryFailedJobsRetained(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryJobs()

	s.Create(ctx, &store.JobRecord{ID: "j1", UserID: "p1", TraitType: "APOE", Status: store.JobQueued})
	s.Create(ctx, &store.JobRecord{ID: "j2", UserID: "p2", TraitType: "HLA-B", Status: store.JobQueued})

	require.NoError(t, s.MarkFailed(ctx, "j1", 3, "circuit error"))

	failed, err := s.FailedJobs(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "j1", failed[0].ID)
	assert.Equal(t, "circuit error", failed[0].LastError.String)
	assert.Equal(t, 3, failed[0].Attempts)
}

func TestMemoryGetUnknownJob(t *testing.T) {
	s := store.NewMemoryJobs()
	rec, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
