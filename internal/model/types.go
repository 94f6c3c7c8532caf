package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunConfig is the full configuration a run was started with. It is fixed
// for the lifetime of the run.
type RunConfig struct {
	Target           string  `json:"target"`
	Genes            string  `json:"genes"`
	Filler           string  `json:"filler"`
	PopulationSize   int     `json:"population_size"`
	EliteRatio       float64 `json:"elite_ratio"`
	GeneMutationRate uint64  `json:"gene_mutation_rate"`
	DeleteWeight     uint64  `json:"delete_weight"`
	InsertWeight     uint64  `json:"insert_weight"`
	ReplaceWeight    uint64  `json:"replace_weight"`
	Selection        string  `json:"selection"`
	BreedFraction    float64 `json:"breed_fraction,omitempty"`
	TournamentSize   int     `json:"tournament_size,omitempty"`
	Breeding         string  `json:"breeding"`
	InitialLength    int     `json:"initial_length"`
	InstructionLimit uint64  `json:"instruction_limit"`
	TapeSize         int     `json:"tape_size"`
	Overflow         string  `json:"overflow"`
	MaxGenerations   int     `json:"max_generations"`
	Seed             uint64  `json:"seed"`
	Workers          int     `json:"workers"`
}

type RunRecord struct {
	VersionedRecord
	ID           string    `json:"id"`
	Config       RunConfig `json:"config"`
	StopReason   string    `json:"stop_reason"`
	Generations  int       `json:"generations"`
	BestFitness  uint64    `json:"best_fitness"`
	BestProgram  string    `json:"best_program"`
	BestOutput   string    `json:"best_output,omitempty"`
	BestError    string    `json:"best_error,omitempty"`
	CreatedAtUTC time.Time `json:"created_at_utc"`
}

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

type TopProgramRecord struct {
	Rank         int    `json:"rank"`
	Fitness      uint64 `json:"fitness"`
	Program      string `json:"program"`
	Output       string `json:"output,omitempty"`
	Error        string `json:"error,omitempty"`
	Instructions uint64 `json:"instructions"`
}
