package evo

import (
	"fmt"

	"bfevolve/internal/rng"
)

const (
	// DefaultGenes carries every operator once plus the filler.
	DefaultGenes       = "+-<>[]. "
	DefaultFiller byte = ' '
)

// Chromosome is candidate program text, one gene per byte.
type Chromosome []byte

func (c Chromosome) Clone() Chromosome {
	if c == nil {
		return nil
	}
	return append(Chromosome(nil), c...)
}

func (c Chromosome) String() string {
	return string(c)
}

// Alphabet is the gene pool random genes are drawn from. Genes may repeat a
// symbol to bias its frequency.
type Alphabet struct {
	Genes  string
	Filler byte
}

func NewAlphabet(genes string, filler byte) (Alphabet, error) {
	if genes == "" {
		return Alphabet{}, fmt.Errorf("alphabet must contain at least one gene")
	}
	return Alphabet{Genes: genes, Filler: filler}, nil
}

func DefaultAlphabet() Alphabet {
	return Alphabet{Genes: DefaultGenes, Filler: DefaultFiller}
}

func (a Alphabet) RandomGene(r *rng.Wyhash64) byte {
	return a.Genes[r.Intn(len(a.Genes))]
}

func (a Alphabet) RandomChromosome(r *rng.Wyhash64, length int) Chromosome {
	c := make(Chromosome, length)
	for i := range c {
		c[i] = a.RandomGene(r)
	}
	return c
}
