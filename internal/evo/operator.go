package evo

import (
	"fmt"

	"bfevolve/internal/rng"
)

// Breeder turns a selected parent pair into one or two child chromosomes.
type Breeder interface {
	Name() string
	Breed(r *rng.Wyhash64, a, b Chromosome) []Chromosome
}

// CrossoverBreeder yields two crossover children, each then mutated.
type CrossoverBreeder struct {
	Mutator Mutator
}

func (CrossoverBreeder) Name() string {
	return "crossover"
}

func (b CrossoverBreeder) Breed(r *rng.Wyhash64, p1, p2 Chromosome) []Chromosome {
	c1, c2 := Crossover(r, p1, p2)
	return []Chromosome{b.Mutator.Mutate(r, c1), b.Mutator.Mutate(r, c2)}
}

// MutationBreeder yields one mutated copy of the first parent.
type MutationBreeder struct {
	Mutator Mutator
}

func (MutationBreeder) Name() string {
	return "mutation"
}

func (b MutationBreeder) Breed(r *rng.Wyhash64, p1, _ Chromosome) []Chromosome {
	return []Chromosome{b.Mutator.Mutate(r, p1)}
}

func BreederFromName(name string, mutator Mutator) (Breeder, error) {
	switch name {
	case "", "crossover":
		return CrossoverBreeder{Mutator: mutator}, nil
	case "mutation":
		return MutationBreeder{Mutator: mutator}, nil
	default:
		return nil, fmt.Errorf("unsupported breeding operator: %s", name)
	}
}
