package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"bfevolve/internal/model"
)

const runIndexFile = "run_index.json"

// Files every run directory carries. best.bf holds the final program with
// filler removed, wrapped for reading.
const (
	ConfigFile                = "config.json"
	FitnessHistoryFile        = "fitness_history.json"
	GenerationDiagnosticsFile = "generation_diagnostics.json"
	TopProgramsFile           = "top_programs.json"
	BestProgramFile           = "best.bf"
)

var runFiles = []string{
	ConfigFile,
	FitnessHistoryFile,
	GenerationDiagnosticsFile,
	TopProgramsFile,
	BestProgramFile,
}

type RunConfig struct {
	RunID string `json:"run_id"`
	model.RunConfig
}

type FitnessHistory struct {
	BestByGeneration []uint64 `json:"best_by_generation"`
	FinalBestFitness uint64   `json:"final_best_fitness"`
	StopReason       string   `json:"stop_reason"`
}

type RunArtifacts struct {
	Config                RunConfig
	BestByGeneration      []uint64
	GenerationDiagnostics []model.GenerationDiagnostics
	TopPrograms           []model.TopProgramRecord
	StopReason            string
	FinalBestFitness      uint64
	// BestProgram is written verbatim to best.bf.
	BestProgram string
}

type RunIndexEntry struct {
	RunID            string `json:"run_id"`
	Target           string `json:"target"`
	PopulationSize   int    `json:"population_size"`
	Generations      int    `json:"generations"`
	Seed             uint64 `json:"seed"`
	Workers          int    `json:"workers"`
	StopReason       string `json:"stop_reason"`
	FinalBestFitness uint64 `json:"final_best_fitness"`
	CreatedAtUTC     string `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.Config.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, ConfigFile), artifacts.Config); err != nil {
		return "", err
	}
	history := FitnessHistory{
		BestByGeneration: artifacts.BestByGeneration,
		FinalBestFitness: artifacts.FinalBestFitness,
		StopReason:       artifacts.StopReason,
	}
	if err := writeJSON(filepath.Join(runDir, FitnessHistoryFile), history); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, GenerationDiagnosticsFile), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, TopProgramsFile), artifacts.TopPrograms); err != nil {
		return "", err
	}
	program := artifacts.BestProgram
	if program != "" && !strings.HasSuffix(program, "\n") {
		program += "\n"
	}
	if err := os.WriteFile(filepath.Join(runDir, BestProgramFile), []byte(program), 0o644); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries with equal
// timestamps keep reverse append order.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range runFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, ConfigFile), &cfg)
	return cfg, ok, err
}

func ReadFitnessHistory(baseDir, runID string) (FitnessHistory, bool, error) {
	var history FitnessHistory
	ok, err := readJSON(filepath.Join(baseDir, runID, FitnessHistoryFile), &history)
	return history, ok, err
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, GenerationDiagnosticsFile), &diagnostics)
	return diagnostics, ok, err
}

func ReadTopPrograms(baseDir, runID string) ([]model.TopProgramRecord, bool, error) {
	var top []model.TopProgramRecord
	ok, err := readJSON(filepath.Join(baseDir, runID, TopProgramsFile), &top)
	return top, ok, err
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []RunIndexEntry{}, nil
	}
	return entries, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
