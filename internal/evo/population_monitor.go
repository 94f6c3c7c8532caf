package evo

import (
	"context"
	"fmt"
	"sync"

	"bfevolve/internal/bf"
	"bfevolve/internal/rng"
	"bfevolve/internal/scape"
)

type StopReason string

const (
	StopSolved          StopReason = "solved"
	StopCancelled       StopReason = "cancelled"
	StopGenerationLimit StopReason = "generation_limit"
)

type GenerationDiagnostics struct {
	Generation         int     `json:"generation"`
	BestFitness        uint64  `json:"best_fitness"`
	MeanRunningFitness float64 `json:"mean_running_fitness"`
	Running            int     `json:"running"`
	SyntaxErrors       int     `json:"syntax_errors"`
	InstrLimitErrors   int     `json:"instr_limit_errors"`
	LogicErrors        int     `json:"logic_errors"`
	MeanLength         float64 `json:"mean_length"`
	BestLength         int     `json:"best_length"`
	RNGState           uint64  `json:"rng_state"`
}

// GenerationReport is handed to the observer once per generation, after
// ranking and before the termination check.
type GenerationReport struct {
	Diagnostics GenerationDiagnostics
	Best        Individual
}

type Observer interface {
	ObserveGeneration(report GenerationReport)
}

type ObserverFunc func(report GenerationReport)

func (f ObserverFunc) ObserveGeneration(report GenerationReport) {
	f(report)
}

type RunResult struct {
	StopReason       StopReason
	Generations      int
	Best             Individual
	BestByGeneration []scape.Fitness
	Diagnostics      []GenerationDiagnostics
	FinalPopulation  Population
}

type MonitorConfig struct {
	Scape          scape.Scape
	Alphabet       Alphabet
	Breeder        Breeder
	Selector       Selector
	PopulationSize int
	EliteRatio     float64
	InitialLength  int
	// MaxGenerations stops the run after that many evaluated generations.
	// Zero runs until solved or cancelled.
	MaxGenerations int
	Workers        int
	RNG            *rng.Wyhash64
	Observer       Observer
}

// PopulationMonitor drives generations: evaluate, rank, report, check for
// termination, then select and breed the next population.
type PopulationMonitor struct {
	cfg        MonitorConfig
	rng        *rng.Wyhash64
	eliteCount int
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, fmt.Errorf("scape is required")
	}
	if cfg.RNG == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if cfg.Breeder == nil {
		return nil, fmt.Errorf("breeder is required")
	}
	if cfg.Alphabet.Genes == "" {
		return nil, fmt.Errorf("alphabet must contain at least one gene")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.EliteRatio < 0 || cfg.EliteRatio > 1 {
		return nil, fmt.Errorf("elitism ratio must be in [0, 1]")
	}
	if cfg.InitialLength < 0 {
		return nil, fmt.Errorf("initial chromosome length must be >= 0")
	}
	if cfg.MaxGenerations < 0 {
		return nil, fmt.Errorf("max generations must be >= 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = RankWindowSelector{BreedFraction: 0.5}
	}

	return &PopulationMonitor{
		cfg:        cfg,
		rng:        cfg.RNG,
		eliteCount: EliteCount(cfg.PopulationSize, cfg.EliteRatio),
	}, nil
}

func (m *PopulationMonitor) EliteCount() int {
	return m.eliteCount
}

// Run evolves until a perfect individual appears, ctx is cancelled, or the
// generation limit is reached. Cancellation is only observed between
// generations, so an evaluation in flight always finishes. A cancelled run
// is not an error; it reports StopCancelled with the best individual so far.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	initial := make([]Chromosome, m.cfg.PopulationSize)
	for i := range initial {
		initial[i] = m.cfg.Alphabet.RandomChromosome(m.rng, m.cfg.InitialLength)
	}
	population := m.evaluate(initial)

	result := RunResult{}
	for generation := 0; ; generation++ {
		population.Rank()
		best := population[0]
		diagnostics := summarizeGeneration(population, generation, m.rng.State())

		result.Generations = generation + 1
		result.Best = best
		result.BestByGeneration = append(result.BestByGeneration, best.Fitness())
		result.Diagnostics = append(result.Diagnostics, diagnostics)
		result.FinalPopulation = population

		if m.cfg.Observer != nil {
			m.cfg.Observer.ObserveGeneration(GenerationReport{Diagnostics: diagnostics, Best: best})
		}

		switch {
		case best.Fitness() == 0:
			result.StopReason = StopSolved
			return result, nil
		case ctx.Err() != nil:
			result.StopReason = StopCancelled
			return result, nil
		case m.cfg.MaxGenerations > 0 && result.Generations >= m.cfg.MaxGenerations:
			result.StopReason = StopGenerationLimit
			return result, nil
		}

		next, err := m.nextGeneration(population)
		if err != nil {
			return result, err
		}
		population = next
	}
}

func (m *PopulationMonitor) nextGeneration(ranked Population) (Population, error) {
	next := make(Population, 0, m.cfg.PopulationSize)
	next = append(next, ranked[:m.eliteCount]...)

	needed := m.cfg.PopulationSize - len(next)
	children := make([]Chromosome, 0, needed)
	for len(children) < needed {
		a, b, err := m.cfg.Selector.PickParents(m.rng, ranked)
		if err != nil {
			return nil, err
		}
		brood := m.cfg.Breeder.Breed(m.rng, a.chromosome, b.chromosome)
		if len(brood) == 0 {
			return nil, fmt.Errorf("breeder %s produced no children", m.cfg.Breeder.Name())
		}
		if room := needed - len(children); len(brood) > room {
			brood = brood[:room]
		}
		children = append(children, brood...)
	}

	return append(next, m.evaluate(children)...), nil
}

// evaluate builds one Individual per chromosome. With several workers the
// scape runs concurrently; it is pure, so only the join is synchronized and
// the result order matches the input order.
func (m *PopulationMonitor) evaluate(chromosomes []Chromosome) Population {
	population := make(Population, len(chromosomes))

	workerCount := m.cfg.Workers
	if workerCount > len(chromosomes) {
		workerCount = len(chromosomes)
	}
	if workerCount <= 1 {
		for i, c := range chromosomes {
			population[i] = NewIndividual(m.cfg.Scape, c)
		}
		return population
	}

	type result struct {
		idx        int
		individual Individual
	}
	jobs := make(chan int)
	results := make(chan result, len(chromosomes))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- result{idx: idx, individual: NewIndividual(m.cfg.Scape, chromosomes[idx])}
			}
		}()
	}
	for i := range chromosomes {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(results)

	for res := range results {
		population[res.idx] = res.individual
	}
	return population
}

func summarizeGeneration(ranked Population, generation int, rngState uint64) GenerationDiagnostics {
	diagnostics := GenerationDiagnostics{Generation: generation, RNGState: rngState}
	if len(ranked) == 0 {
		return diagnostics
	}
	diagnostics.BestFitness = uint64(ranked[0].Fitness())
	diagnostics.BestLength = ranked[0].Len()

	var runningTotal float64
	var lengthTotal int
	for _, individual := range ranked {
		lengthTotal += individual.Len()
		if execErr := individual.Err(); execErr != nil {
			switch execErr.Kind {
			case bf.SyntaxError:
				diagnostics.SyntaxErrors++
			case bf.InstrLimitExceeded:
				diagnostics.InstrLimitErrors++
			case bf.LogicError:
				diagnostics.LogicErrors++
			}
			continue
		}
		diagnostics.Running++
		runningTotal += float64(individual.Fitness())
	}
	if diagnostics.Running > 0 {
		diagnostics.MeanRunningFitness = runningTotal / float64(diagnostics.Running)
	}
	diagnostics.MeanLength = float64(lengthTotal) / float64(len(ranked))
	return diagnostics
}
