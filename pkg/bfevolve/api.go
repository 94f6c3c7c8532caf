// Package bfevolve is the public entry point for running program searches
// and inspecting their history.
package bfevolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bfevolve/internal/bf"
	"bfevolve/internal/evo"
	"bfevolve/internal/model"
	"bfevolve/internal/platform"
	"bfevolve/internal/report"
	"bfevolve/internal/rng"
	"bfevolve/internal/stats"
	"bfevolve/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "bfevolve.db"
)

// Run defaults. They reproduce the classic "hi" search configuration.
const (
	DefaultTarget           = "hi"
	DefaultPopulation       = 50
	DefaultEliteRatio       = 0.1
	DefaultGeneMutationRate = 2
	DefaultBreedFraction    = 0.5
	DefaultTournamentSize   = 3
	DefaultInitialLength    = 50
	DefaultInstructionLimit = 10000
	DefaultSelection        = "rank_window"
	DefaultBreeding         = "crossover"
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

type Client struct {
	store storage.Store
	polis *platform.Polis

	runsDir    string
	exportsDir string
}

// RunRequest configures one search. Zero values take the package defaults.
// EliteRatio, GeneMutationRate and InitialLength are pointers because zero
// is a valid setting for each of them; nil takes the default.
type RunRequest struct {
	Target           string
	Genes            string
	Filler           string
	Population       int
	EliteRatio       *float64
	GeneMutationRate *uint64
	DeleteWeight     uint64
	InsertWeight     uint64
	ReplaceWeight    uint64
	Selection        string
	BreedFraction    float64
	TournamentSize   int
	Breeding         string
	InitialLength    *int
	InstructionLimit uint64
	TapeSize         int
	Overflow         string
	MaxGenerations   int
	// Seed zero draws a seed from the clock. The seed actually used is
	// reported in the summary.
	Seed    uint64
	Workers int

	Progress    io.Writer
	ReportEvery int
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	Seed             uint64
	StopReason       string
	Generations      int
	BestByGeneration []uint64
	FinalBestFitness uint64
	BestProgram      string
	BestOutput       string
	BestError        string
	Filler           byte
}

type ExecuteRequest struct {
	Program string
	// InstructionLimit zero runs without a step bound.
	InstructionLimit uint64
	TapeSize         int
	Overflow         string
}

type ExecuteResult struct {
	Output       []byte
	Instructions uint64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Target           string
	Seed             uint64
	Population       int
	Generations      int
	StopReason       string
	FinalBestFitness uint64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type TopProgramsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func Float64(v float64) *float64 {
	return &v
}

func Uint64(v uint64) *uint64 {
	return &v
}

func Int(v int) *int {
	return &v
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	if c.polis != nil {
		c.polis.Shutdown()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Run searches until a program prints the target exactly, ctx is cancelled,
// or the generation limit is reached. All three outcomes are persisted and
// reported without error.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}

	cfg := runConfigFromRequest(req)
	if cfg.Seed == 0 {
		cfg.Seed = rng.NewFromTime().State()
	}
	runID := fmt.Sprintf("%d-%s", cfg.Seed, uuid.NewString())

	var printer *report.Printer
	var observer evo.Observer
	if req.Progress != nil {
		printer = report.NewPrinter(req.Progress, req.ReportEvery)
		observer = printer
	}

	result, err := p.RunEvolution(ctx, platform.EvolutionConfig{
		RunID:    runID,
		Run:      cfg,
		Observer: observer,
	})
	if printer != nil {
		printer.Done()
	}
	if err != nil {
		return RunSummary{}, err
	}

	filler := evo.DefaultFiller
	if cfg.Filler != "" {
		filler = cfg.Filler[0]
	}
	record := result.Record
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:                stats.RunConfig{RunID: runID, RunConfig: cfg},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		TopPrograms:           result.TopFinal,
		StopReason:            record.StopReason,
		FinalBestFitness:      record.BestFitness,
		BestProgram:           report.FormatProgram([]byte(record.BestProgram), filler, report.DefaultWidth),
	})
	if err != nil {
		return RunSummary{}, err
	}

	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            runID,
		Target:           cfg.Target,
		PopulationSize:   cfg.PopulationSize,
		Generations:      record.Generations,
		Seed:             cfg.Seed,
		Workers:          cfg.Workers,
		StopReason:       record.StopReason,
		FinalBestFitness: record.BestFitness,
		CreatedAtUTC:     record.CreatedAtUTC.Format(time.RFC3339Nano),
	}); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Seed:             cfg.Seed,
		StopReason:       record.StopReason,
		Generations:      record.Generations,
		BestByGeneration: append([]uint64(nil), result.BestByGeneration...),
		FinalBestFitness: record.BestFitness,
		BestProgram:      record.BestProgram,
		BestOutput:       record.BestOutput,
		BestError:        record.BestError,
		Filler:           filler,
	}, nil
}

// Execute runs arbitrary program text through the engine. The error, when
// not nil, is a *bf.ExecError.
func (c *Client) Execute(_ context.Context, req ExecuteRequest) (ExecuteResult, error) {
	overflow, err := bf.ParseOverflowPolicy(req.Overflow)
	if err != nil {
		return ExecuteResult{}, err
	}
	tapeSize := req.TapeSize
	if tapeSize == 0 {
		tapeSize = bf.DefaultTapeSize
	}
	if tapeSize < 0 {
		return ExecuteResult{}, errors.New("tape size must be > 0")
	}

	res, err := bf.Execute([]byte(req.Program), bf.Limits{
		InstructionLimit: req.InstructionLimit,
		TapeSize:         tapeSize,
		Overflow:         overflow,
	})
	if err != nil {
		return ExecuteResult{}, err
	}
	return ExecuteResult{Output: res.Output, Instructions: res.Instructions}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Target:           e.Target,
			Seed:             e.Seed,
			Population:       e.PopulationSize,
			Generations:      e.Generations,
			StopReason:       e.StopReason,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// FitnessHistory reads from the store first and falls back to the run's
// artifact files, so a memory-backed client can inspect earlier processes'
// runs.
func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]uint64, error) {
	runID, err := c.lookup(ctx, req.RunID, req.Latest, req.Limit, "fitness history")
	if err != nil {
		return nil, err
	}

	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		artifact, found, err := stats.ReadFitnessHistory(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
		}
		history = artifact.BestByGeneration
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]uint64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.lookup(ctx, req.RunID, req.Latest, req.Limit, "diagnostics")
	if err != nil {
		return nil, err
	}

	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

func (c *Client) TopPrograms(ctx context.Context, req TopProgramsRequest) ([]model.TopProgramRecord, error) {
	runID, err := c.lookup(ctx, req.RunID, req.Latest, req.Limit, "top programs")
	if err != nil {
		return nil, err
	}

	top, ok, err := c.store.GetTopPrograms(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		top, ok, err = stats.ReadTopPrograms(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("top programs not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(top) > req.Limit {
		top = top[:req.Limit]
	}
	out := make([]model.TopProgramRecord, len(top))
	copy(out, top)
	return out, nil
}

func (c *Client) lookup(ctx context.Context, runID string, latest bool, limit int, what string) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	resolved, err := c.resolveRunID(runID, latest, what)
	if err != nil {
		return "", err
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return "", err
	}
	return resolved, nil
}

func (c *Client) resolveRunID(runID string, latest bool, what string) (string, error) {
	if latest {
		entries, err := stats.ListRunIndex(c.runsDir)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "", errors.New("no runs available")
		}
		return entries[0].RunID, nil
	}
	if runID == "" {
		return "", fmt.Errorf("%s requires run id or latest", what)
	}
	return runID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func runConfigFromRequest(req RunRequest) model.RunConfig {
	cfg := model.RunConfig{
		Target:           req.Target,
		Genes:            req.Genes,
		Filler:           req.Filler,
		PopulationSize:   req.Population,
		EliteRatio:       DefaultEliteRatio,
		GeneMutationRate: DefaultGeneMutationRate,
		DeleteWeight:     req.DeleteWeight,
		InsertWeight:     req.InsertWeight,
		ReplaceWeight:    req.ReplaceWeight,
		Selection:        req.Selection,
		BreedFraction:    req.BreedFraction,
		TournamentSize:   req.TournamentSize,
		Breeding:         req.Breeding,
		InitialLength:    DefaultInitialLength,
		InstructionLimit: req.InstructionLimit,
		TapeSize:         req.TapeSize,
		Overflow:         req.Overflow,
		MaxGenerations:   req.MaxGenerations,
		Seed:             req.Seed,
		Workers:          req.Workers,
	}
	if req.EliteRatio != nil {
		cfg.EliteRatio = *req.EliteRatio
	}
	if req.GeneMutationRate != nil {
		cfg.GeneMutationRate = *req.GeneMutationRate
	}
	if req.InitialLength != nil {
		cfg.InitialLength = *req.InitialLength
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.Genes == "" {
		cfg.Genes = evo.DefaultGenes
	}
	if cfg.Filler == "" {
		cfg.Filler = string(evo.DefaultFiller)
	}
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = DefaultPopulation
	}
	if cfg.DeleteWeight == 0 && cfg.InsertWeight == 0 && cfg.ReplaceWeight == 0 {
		weights := evo.DefaultMutationWeights()
		cfg.DeleteWeight, cfg.InsertWeight, cfg.ReplaceWeight = weights.Delete, weights.Insert, weights.Replace
	}
	if cfg.Selection == "" {
		cfg.Selection = DefaultSelection
	}
	if cfg.BreedFraction == 0 {
		cfg.BreedFraction = DefaultBreedFraction
	}
	if cfg.TournamentSize == 0 {
		cfg.TournamentSize = DefaultTournamentSize
	}
	if cfg.Breeding == "" {
		cfg.Breeding = DefaultBreeding
	}
	if cfg.InstructionLimit == 0 {
		cfg.InstructionLimit = DefaultInstructionLimit
	}
	if cfg.TapeSize == 0 {
		cfg.TapeSize = bf.DefaultTapeSize
	}
	if cfg.Overflow == "" {
		cfg.Overflow = bf.Wrap.String()
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	return cfg
}
