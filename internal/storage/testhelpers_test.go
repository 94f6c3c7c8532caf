package storage

import (
	"context"
	"testing"
	"time"

	"bfevolve/internal/model"
)

func sampleRun(id string, created time.Time) model.RunRecord {
	run := model.RunRecord{
		ID:           id,
		Config:       model.RunConfig{Target: "hi", Genes: "+.<>[] ", PopulationSize: 50, Seed: 1},
		StopReason:   "solved",
		Generations:  12,
		BestProgram:  "++++.",
		BestOutput:   "\x04",
		CreatedAtUTC: created.UTC(),
	}
	Stamp(&run.VersionedRecord)
	return run
}

// exerciseStore runs the same round trips against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := store.SaveRun(ctx, sampleRun("older", base)); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, sampleRun("newer", base.Add(time.Minute))); err != nil {
		t.Fatalf("save run: %v", err)
	}

	run, ok, err := store.GetRun(ctx, "older")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%t err=%v", ok, err)
	}
	if run.Config.Target != "hi" || run.BestProgram != "++++." || !run.CreatedAtUTC.Equal(base) {
		t.Fatalf("unexpected run: %+v", run)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing run, ok=%t err=%v", ok, err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "newer" || runs[1].ID != "older" {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	history := []uint64{209, 105, 3, 0}
	if err := store.SaveFitnessHistory(ctx, "newer", history); err != nil {
		t.Fatalf("save history: %v", err)
	}
	history[0] = 1
	gotHistory, ok, err := store.GetFitnessHistory(ctx, "newer")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if len(gotHistory) != 4 || gotHistory[0] != 209 || gotHistory[3] != 0 {
		t.Fatalf("unexpected history: %v", gotHistory)
	}

	diagnostics := []model.GenerationDiagnostics{{Generation: 0, BestFitness: 209, Running: 40, LogicErrors: 10, RNGState: 42}}
	if err := store.SaveGenerationDiagnostics(ctx, "newer", diagnostics); err != nil {
		t.Fatalf("save diagnostics: %v", err)
	}
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "newer")
	if err != nil || !ok {
		t.Fatalf("get diagnostics: ok=%t err=%v", ok, err)
	}
	if len(gotDiagnostics) != 1 || gotDiagnostics[0] != diagnostics[0] {
		t.Fatalf("unexpected diagnostics: %+v", gotDiagnostics)
	}

	top := []model.TopProgramRecord{{Rank: 1, Fitness: 0, Program: "+.", Output: "\x01", Instructions: 2}}
	if err := store.SaveTopPrograms(ctx, "newer", top); err != nil {
		t.Fatalf("save top: %v", err)
	}
	gotTop, ok, err := store.GetTopPrograms(ctx, "newer")
	if err != nil || !ok {
		t.Fatalf("get top: ok=%t err=%v", ok, err)
	}
	if len(gotTop) != 1 || gotTop[0] != top[0] {
		t.Fatalf("unexpected top programs: %+v", gotTop)
	}

	if _, ok, err := store.GetTopPrograms(ctx, "older"); err != nil || ok {
		t.Fatalf("expected no top programs for older run, ok=%t err=%v", ok, err)
	}
}
