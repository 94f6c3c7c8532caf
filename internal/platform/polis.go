package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bfevolve/internal/bf"
	"bfevolve/internal/evo"
	"bfevolve/internal/model"
	"bfevolve/internal/rng"
	"bfevolve/internal/scape"
	"bfevolve/internal/storage"
)

// TopProgramCount is how many of the final population's best programs are
// persisted with a run.
const TopProgramCount = 5

type Config struct {
	Store storage.Store
}

type EvolutionConfig struct {
	RunID    string
	Run      model.RunConfig
	Observer evo.Observer
}

type EvolutionResult struct {
	Record                model.RunRecord
	Best                  evo.Individual
	BestByGeneration      []uint64
	GenerationDiagnostics []model.GenerationDiagnostics
	TopFinal              []model.TopProgramRecord
}

// Polis owns the run store and the set of runs in flight.
type Polis struct {
	store storage.Store

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	return &Polis{
		store: cfg.Store,
		runs:  make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

// RunEvolution runs one evolution to completion and persists its history.
// A run stopped through ctx or StopRun is still persisted, with stop reason
// cancelled.
func (p *Polis) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.RunID == "" {
		return EvolutionResult{}, fmt.Errorf("run id is required")
	}
	if !p.Started() {
		return EvolutionResult{}, fmt.Errorf("polis is not initialized")
	}

	monitorCfg, err := BuildMonitorConfig(cfg.Run)
	if err != nil {
		return EvolutionResult{}, err
	}
	monitorCfg.Observer = cfg.Observer

	monitor, err := evo.NewPopulationMonitor(monitorCfg)
	if err != nil {
		return EvolutionResult{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(cfg.RunID, cancel); err != nil {
		return EvolutionResult{}, err
	}
	defer p.unregisterRun(cfg.RunID)

	result, err := monitor.Run(runCtx)
	if err != nil {
		return EvolutionResult{}, err
	}

	// Cancelled runs are still persisted.
	persistCtx := context.WithoutCancel(ctx)

	history := make([]uint64, 0, len(result.BestByGeneration))
	for _, f := range result.BestByGeneration {
		history = append(history, uint64(f))
	}
	diagnostics := toModelDiagnostics(result.Diagnostics)
	top := toModelTopPrograms(result.FinalPopulation, TopProgramCount)

	if err := p.store.SaveFitnessHistory(persistCtx, cfg.RunID, history); err != nil {
		return EvolutionResult{}, err
	}
	if err := p.store.SaveGenerationDiagnostics(persistCtx, cfg.RunID, diagnostics); err != nil {
		return EvolutionResult{}, err
	}
	if err := p.store.SaveTopPrograms(persistCtx, cfg.RunID, top); err != nil {
		return EvolutionResult{}, err
	}

	record := model.RunRecord{
		ID:           cfg.RunID,
		Config:       cfg.Run,
		StopReason:   string(result.StopReason),
		Generations:  result.Generations,
		BestFitness:  uint64(result.Best.Fitness()),
		BestProgram:  result.Best.Chromosome().String(),
		CreatedAtUTC: time.Now().UTC(),
	}
	if execErr := result.Best.Err(); execErr != nil {
		record.BestError = execErr.Kind.String()
	} else {
		record.BestOutput = string(result.Best.Output())
	}
	storage.Stamp(&record.VersionedRecord)
	if err := p.store.SaveRun(persistCtx, record); err != nil {
		return EvolutionResult{}, err
	}

	return EvolutionResult{
		Record:                record,
		Best:                  result.Best,
		BestByGeneration:      history,
		GenerationDiagnostics: diagnostics,
		TopFinal:              top,
	}, nil
}

// StopRun cancels a run in flight. The run notices at its next generation
// boundary.
func (p *Polis) StopRun(runID string) error {
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel()
	return nil
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown cancels every active run and marks the polis stopped.
func (p *Polis) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.started = false
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}

// BuildMonitorConfig turns a persisted run configuration into the pieces a
// population monitor runs with. The random source is seeded from cfg.Seed
// as given; callers resolve an unset seed before this point.
func BuildMonitorConfig(cfg model.RunConfig) (evo.MonitorConfig, error) {
	overflow, err := bf.ParseOverflowPolicy(cfg.Overflow)
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	limits := bf.Limits{
		InstructionLimit: cfg.InstructionLimit,
		TapeSize:         cfg.TapeSize,
		Overflow:         overflow,
	}
	target, err := scape.NewTargetScape(cfg.Target, limits)
	if err != nil {
		return evo.MonitorConfig{}, err
	}

	filler := evo.DefaultFiller
	if cfg.Filler != "" {
		if len(cfg.Filler) != 1 {
			return evo.MonitorConfig{}, fmt.Errorf("filler must be a single byte, got %q", cfg.Filler)
		}
		filler = cfg.Filler[0]
	}
	alphabet, err := evo.NewAlphabet(cfg.Genes, filler)
	if err != nil {
		return evo.MonitorConfig{}, err
	}

	mutator, err := evo.NewMutator(alphabet, cfg.GeneMutationRate, evo.MutationWeights{
		Delete:  cfg.DeleteWeight,
		Insert:  cfg.InsertWeight,
		Replace: cfg.ReplaceWeight,
	})
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	breeder, err := evo.BreederFromName(cfg.Breeding, mutator)
	if err != nil {
		return evo.MonitorConfig{}, err
	}
	selector, err := evo.SelectorFromName(cfg.Selection, cfg.BreedFraction, cfg.TournamentSize)
	if err != nil {
		return evo.MonitorConfig{}, err
	}

	return evo.MonitorConfig{
		Scape:          target,
		Alphabet:       alphabet,
		Breeder:        breeder,
		Selector:       selector,
		PopulationSize: cfg.PopulationSize,
		EliteRatio:     cfg.EliteRatio,
		InitialLength:  cfg.InitialLength,
		MaxGenerations: cfg.MaxGenerations,
		Workers:        cfg.Workers,
		RNG:            rng.New(cfg.Seed),
	}, nil
}

func toModelDiagnostics(diags []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, 0, len(diags))
	for _, d := range diags {
		out = append(out, model.GenerationDiagnostics{
			Generation:         d.Generation,
			BestFitness:        d.BestFitness,
			MeanRunningFitness: d.MeanRunningFitness,
			Running:            d.Running,
			SyntaxErrors:       d.SyntaxErrors,
			InstrLimitErrors:   d.InstrLimitErrors,
			LogicErrors:        d.LogicErrors,
			MeanLength:         d.MeanLength,
			BestLength:         d.BestLength,
			RNGState:           d.RNGState,
		})
	}
	return out
}

// toModelTopPrograms expects ranked, best first.
func toModelTopPrograms(ranked evo.Population, limit int) []model.TopProgramRecord {
	if len(ranked) < limit {
		limit = len(ranked)
	}
	out := make([]model.TopProgramRecord, 0, limit)
	for i, individual := range ranked[:limit] {
		eval := individual.Evaluation()
		record := model.TopProgramRecord{
			Rank:         i + 1,
			Fitness:      uint64(eval.Fitness),
			Program:      individual.Chromosome().String(),
			Instructions: eval.Result.Instructions,
		}
		if eval.Err != nil {
			record.Error = eval.Err.Kind.String()
			record.Instructions = eval.Err.Instructions
		} else {
			record.Output = string(eval.Result.Output)
		}
		out = append(out, record)
	}
	return out
}
