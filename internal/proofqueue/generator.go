package proofqueue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// ProgressFunc reports a 0-100 percentage and an optional stage label while a
// proof is being generated.
type ProgressFunc func(pct int, stage string)

// Generator is the boundary to the ZK proof SDK. The real implementation is
// an external system; the queue only depends on this contract.
type Generator interface {
	Generate(ctx context.Context, job *Job, progress ProgressFunc) (*Proof, error)
}

// LocalGenerator is the in-process implementation used by the dev binary and
// tests. It walks through the usual circuit stages with a fixed delay per
// stage and derives a deterministic pseudo-proof from the job input.
type LocalGenerator struct {
	StageDelay time.Duration
}

var _ Generator = (*LocalGenerator)(nil)

var localStages = []struct {
	pct   int
	label string
}{
	{10, "loading-circuit"},
	{30, "computing-witness"},
	{60, "generating-proof"},
	{90, "verifying-locally"},
	{100, "done"},
}

func (g *LocalGenerator) Generate(ctx context.Context, job *Job, progress ProgressFunc) (*Proof, error) {
	for _, stage := range localStages {
		if g.StageDelay > 0 {
			select {
			case <-time.After(g.StageDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}
		if progress != nil {
			progress(stage.pct, stage.label)
		}
	}

	digest := sha256.Sum256(append([]byte(job.TraitType+":"), job.Input...))
	encoded, err := json.Marshal(map[string]string{
		"scheme":     "groth16",
		"commitment": hex.EncodeToString(digest[:]),
	})
	if err != nil {
		return nil, err
	}
	return &Proof{
		JobID:       job.ID,
		TraitType:   job.TraitType,
		Proof:       encoded,
		GeneratedAt: time.Now(),
	}, nil
}
