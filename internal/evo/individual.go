package evo

import (
	"sort"

	"bfevolve/internal/bf"
	"bfevolve/internal/scape"
)

// Individual binds a chromosome to its evaluation. It is built once and
// never changed; edits produce a new Individual.
type Individual struct {
	chromosome Chromosome
	eval       scape.Evaluation
}

// NewIndividual evaluates c exactly once and caches the outcome.
func NewIndividual(s scape.Scape, c Chromosome) Individual {
	owned := c.Clone()
	return Individual{chromosome: owned, eval: s.Evaluate(owned)}
}

func (i Individual) Chromosome() Chromosome {
	return i.chromosome.Clone()
}

func (i Individual) Len() int {
	return len(i.chromosome)
}

func (i Individual) Fitness() scape.Fitness {
	return i.eval.Fitness
}

func (i Individual) Evaluation() scape.Evaluation {
	return i.eval
}

func (i Individual) Output() []byte {
	return append([]byte(nil), i.eval.Result.Output...)
}

// Err is nil when the program ran to completion.
func (i Individual) Err() *bf.ExecError {
	return i.eval.Err
}

// Population holds one generation of individuals.
type Population []Individual

// Rank orders the population by ascending fitness.
func (p Population) Rank() {
	sort.SliceStable(p, func(i, j int) bool {
		return p[i].Fitness() < p[j].Fitness()
	})
}

func (p Population) Clone() Population {
	return append(Population(nil), p...)
}
