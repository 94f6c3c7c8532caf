package evo

import (
	"strings"
	"testing"

	"bfevolve/internal/rng"
)

func TestRandomChromosomeDrawsFromAlphabet(t *testing.T) {
	alphabet, err := NewAlphabet("++.", ' ')
	if err != nil {
		t.Fatalf("new alphabet: %v", err)
	}
	r := rng.New(4)
	c := alphabet.RandomChromosome(r, 200)
	if len(c) != 200 {
		t.Fatalf("expected length 200, got %d", len(c))
	}
	plus := 0
	for _, gene := range c {
		if !strings.ContainsRune(alphabet.Genes, rune(gene)) {
			t.Fatalf("gene %q not in alphabet", gene)
		}
		if gene == '+' {
			plus++
		}
	}
	if plus < 100 {
		t.Fatalf("expected repeated '+' to be drawn more often, got %d of 200", plus)
	}
}

func TestNewAlphabetRejectsEmpty(t *testing.T) {
	if _, err := NewAlphabet("", ' '); err == nil {
		t.Fatal("expected error for empty alphabet")
	}
}

func TestChromosomeCloneIsIndependent(t *testing.T) {
	c := Chromosome("+-.")
	clone := c.Clone()
	clone[0] = '>'
	if c[0] != '+' {
		t.Fatal("clone shares storage with original")
	}
	if Chromosome(nil).Clone() != nil {
		t.Fatal("nil clone should stay nil")
	}
}
