package storage

import (
	"context"

	"bfevolve/internal/model"
)

// Store persists finished runs and their per-generation history. Population
// state is never stored; a run cannot be resumed.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []uint64) error
	GetFitnessHistory(ctx context.Context, runID string) ([]uint64, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
	SaveTopPrograms(ctx context.Context, runID string, top []model.TopProgramRecord) error
	GetTopPrograms(ctx context.Context, runID string) ([]model.TopProgramRecord, bool, error)
}
