package evo

import (
	"fmt"

	"bfevolve/internal/rng"
)

// MutationWeights split a gene mutation between its three actions. The
// weights are percentages and must sum to 100.
type MutationWeights struct {
	Delete  uint64 `json:"delete"`
	Insert  uint64 `json:"insert"`
	Replace uint64 `json:"replace"`
}

func DefaultMutationWeights() MutationWeights {
	return MutationWeights{Delete: 20, Insert: 20, Replace: 60}
}

func (w MutationWeights) Validate() error {
	if sum := w.Delete + w.Insert + w.Replace; sum != 100 {
		return fmt.Errorf("mutation weights must sum to 100, got %d", sum)
	}
	return nil
}

type mutationAction int

const (
	actionDelete mutationAction = iota
	actionInsert
	actionReplace
)

// Mutator visits every gene and, with probability GeneRate percent, deletes
// it, inserts a fresh gene before it, or replaces it.
type Mutator struct {
	Alphabet Alphabet
	GeneRate uint64
	Weights  MutationWeights
}

func NewMutator(alphabet Alphabet, geneRate uint64, weights MutationWeights) (Mutator, error) {
	if alphabet.Genes == "" {
		return Mutator{}, fmt.Errorf("alphabet must contain at least one gene")
	}
	if geneRate > 100 {
		return Mutator{}, fmt.Errorf("gene mutation rate must be in [0, 100], got %d", geneRate)
	}
	if err := weights.Validate(); err != nil {
		return Mutator{}, err
	}
	return Mutator{Alphabet: alphabet, GeneRate: geneRate, Weights: weights}, nil
}

// Mutate returns a new chromosome; parent is never modified. An empty parent
// may grow a single gene so that it can rejoin the search.
func (m Mutator) Mutate(r *rng.Wyhash64, parent Chromosome) Chromosome {
	if len(parent) == 0 {
		if r.Chance(m.GeneRate) {
			return Chromosome{m.Alphabet.RandomGene(r)}
		}
		return Chromosome{}
	}

	child := make(Chromosome, 0, len(parent)+len(parent)/8+1)
	for _, gene := range parent {
		if !r.Chance(m.GeneRate) {
			child = append(child, gene)
			continue
		}
		switch m.action(r) {
		case actionDelete:
		case actionInsert:
			child = append(child, m.Alphabet.RandomGene(r), gene)
		case actionReplace:
			child = append(child, m.Alphabet.RandomGene(r))
		}
	}
	return child
}

func (m Mutator) action(r *rng.Wyhash64) mutationAction {
	roll := r.InRange(0, 99)
	switch {
	case roll < m.Weights.Delete:
		return actionDelete
	case roll < m.Weights.Delete+m.Weights.Insert:
		return actionInsert
	default:
		return actionReplace
	}
}

// Crossover cuts both parents at one index drawn from the shorter length.
// The first child is the shorter parent's prefix plus the longer parent's
// suffix, so it keeps the longer parent's tail; the second swaps donors.
// Equal lengths treat p1 as the shorter one.
func Crossover(r *rng.Wyhash64, p1, p2 Chromosome) (Chromosome, Chromosome) {
	short, long := p1, p2
	if len(long) < len(short) {
		short, long = long, short
	}
	if len(short) == 0 {
		return p1.Clone(), p2.Clone()
	}

	cut := r.Intn(len(short))
	first := make(Chromosome, 0, len(long))
	first = append(first, short[:cut]...)
	first = append(first, long[cut:]...)

	second := make(Chromosome, 0, len(short))
	second = append(second, long[:cut]...)
	second = append(second, short[cut:]...)
	return first, second
}
