package stats

import (
	"os"
	"path/filepath"
	"testing"

	"bfevolve/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:     runID,
			RunConfig: model.RunConfig{Target: "hi", PopulationSize: 30, Seed: 1, Workers: 2},
		},
		BestByGeneration: []uint64{209, 110, 4, 0},
		GenerationDiagnostics: []model.GenerationDiagnostics{
			{Generation: 0, BestFitness: 209, Running: 12},
		},
		TopPrograms: []model.TopProgramRecord{
			{Rank: 1, Fitness: 0, Program: "+.", Output: "\x01", Instructions: 2},
		},
		StopReason:       "solved",
		FinalBestFitness: 0,
		BestProgram:      "+.",
	}
}

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts("run-123"))
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range runFiles {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	program, err := os.ReadFile(filepath.Join(runDir, BestProgramFile))
	if err != nil {
		t.Fatalf("read best program: %v", err)
	}
	if string(program) != "+.\n" {
		t.Fatalf("unexpected best program: %q", program)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range runFiles {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}

	cfg, ok, err := ReadRunConfig(outDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read exported config: ok=%t err=%v", ok, err)
	}
	if cfg.RunID != "run-123" || cfg.Target != "hi" || cfg.PopulationSize != 30 {
		t.Fatalf("unexpected exported config: %+v", cfg)
	}

	history, ok, err := ReadFitnessHistory(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read history: ok=%t err=%v", ok, err)
	}
	if len(history.BestByGeneration) != 4 || history.StopReason != "solved" {
		t.Fatalf("unexpected history: %+v", history)
	}

	diagnostics, ok, err := ReadGenerationDiagnostics(baseDir, "run-123")
	if err != nil || !ok || len(diagnostics) != 1 || diagnostics[0].BestFitness != 209 {
		t.Fatalf("unexpected diagnostics: ok=%t err=%v %+v", ok, err, diagnostics)
	}

	top, ok, err := ReadTopPrograms(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read top programs: ok=%t err=%v", ok, err)
	}
	if len(top) != 1 || top[0].Program != "+." {
		t.Fatalf("unexpected top programs: %+v", top)
	}
}

func TestReadMissingArtifactsReportsNotFound(t *testing.T) {
	if _, ok, err := ReadFitnessHistory(t.TempDir(), "nope"); err != nil || ok {
		t.Fatalf("expected not found, ok=%t err=%v", ok, err)
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestExportMissingRunFails(t *testing.T) {
	if _, err := ExportRunArtifacts(t.TempDir(), "nope", t.TempDir()); err == nil {
		t.Fatal("expected missing run error")
	}
}

func TestRunIndexNewestFirstAndReplace(t *testing.T) {
	baseDir := t.TempDir()

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list empty index: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %+v", entries)
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("append b: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "c", CreatedAtUTC: "2026-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("append c: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z", StopReason: "solved"}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].RunID != "c" || entries[1].RunID != "b" || entries[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[2].StopReason != "solved" {
		t.Fatalf("expected replaced entry, got %+v", entries[2])
	}
}

func TestAppendRunIndexRequiresRunID(t *testing.T) {
	if err := AppendRunIndex(t.TempDir(), RunIndexEntry{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}
