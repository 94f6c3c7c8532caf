package evo

import (
	"fmt"
	"testing"

	"bfevolve/internal/rng"
)

func rankedPopulation(t *testing.T, size int) Population {
	t.Helper()
	s := newTestScape(t, string([]byte{byte(0)}))
	pop := make(Population, 0, size)
	for i := 0; i < size; i++ {
		program := ""
		for j := 0; j < i; j++ {
			program += "+"
		}
		pop = append(pop, NewIndividual(s, Chromosome(program+".")))
	}
	pop.Rank()
	return pop
}

func TestRankWindowSelectorDrawsDistinctParentsFromWindow(t *testing.T) {
	pop := rankedPopulation(t, 10)
	selector := RankWindowSelector{BreedFraction: 0.3}
	if w := selector.Window(len(pop)); w != 3 {
		t.Fatalf("expected window 3, got %d", w)
	}
	r := rng.New(21)
	for i := 0; i < 500; i++ {
		a, b, err := selector.PickParents(r, pop)
		if err != nil {
			t.Fatalf("pick parents: %v", err)
		}
		if a.Fitness() == b.Fitness() {
			t.Fatalf("expected distinct parents, got fitness %d twice", a.Fitness())
		}
		if a.Fitness() > 2 || b.Fitness() > 2 {
			t.Fatalf("parent outside breeding window: %d, %d", a.Fitness(), b.Fitness())
		}
	}
}

func TestRankWindowSelectorMinimumWindow(t *testing.T) {
	selector := RankWindowSelector{BreedFraction: 0.01}
	if w := selector.Window(50); w != 2 {
		t.Fatalf("expected window floor of 2, got %d", w)
	}
	if w := (RankWindowSelector{BreedFraction: 1}).Window(5); w != 5 {
		t.Fatalf("expected full window, got %d", w)
	}
	single := rankedPopulation(t, 1)
	a, b, err := selector.PickParents(rng.New(1), single)
	if err != nil {
		t.Fatalf("pick from single: %v", err)
	}
	if a.Fitness() != b.Fitness() {
		t.Fatal("single individual must parent itself")
	}
}

func TestTournamentSelectorFavorsFitter(t *testing.T) {
	pop := rankedPopulation(t, 20)
	r := rng.New(5)
	small := TournamentSelector{Size: 1}
	large := TournamentSelector{Size: 8}

	var smallTotal, largeTotal uint64
	for i := 0; i < 400; i++ {
		a, b, err := small.PickParents(r, pop)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		smallTotal += uint64(a.Fitness() + b.Fitness())
		a, b, err = large.PickParents(r, pop)
		if err != nil {
			t.Fatalf("pick: %v", err)
		}
		largeTotal += uint64(a.Fitness() + b.Fitness())
	}
	if largeTotal >= smallTotal {
		t.Fatalf("expected larger tournaments to pick fitter parents: large=%d small=%d", largeTotal, smallTotal)
	}
}

func TestSelectorsRejectEmptyPopulationAndNilRNG(t *testing.T) {
	for _, selector := range []Selector{RankWindowSelector{BreedFraction: 0.5}, TournamentSelector{Size: 2}} {
		if _, _, err := selector.PickParents(rng.New(1), nil); err == nil {
			t.Fatalf("%s: expected empty population error", selector.Name())
		}
		if _, _, err := selector.PickParents(nil, rankedPopulation(t, 3)); err == nil {
			t.Fatalf("%s: expected nil rng error", selector.Name())
		}
	}
}

func TestSelectorFromName(t *testing.T) {
	s, err := SelectorFromName("tournament", 0.5, 4)
	if err != nil {
		t.Fatalf("tournament: %v", err)
	}
	if ts, ok := s.(TournamentSelector); !ok || ts.Size != 4 {
		t.Fatalf("unexpected selector %#v", s)
	}
	s, err = SelectorFromName("", 0.25, 0)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if s.Name() != "rank_window" {
		t.Fatalf("expected rank_window default, got %s", s.Name())
	}
	for _, bad := range []struct {
		name     string
		fraction float64
		size     int
	}{{"rank_window", 0, 0}, {"rank_window", 1.5, 0}, {"tournament", 0.5, 0}, {"roulette", 0.5, 3}} {
		if _, err := SelectorFromName(bad.name, bad.fraction, bad.size); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestEliteCount(t *testing.T) {
	cases := []struct {
		size  int
		ratio float64
		want  int
	}{
		{50, 0.1, 5},
		{50, 0, 0},
		{50, 0.001, 1},
		{10, 1, 10},
		{7, 0.5, 4},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%v", tc.size, tc.ratio), func(t *testing.T) {
			if got := EliteCount(tc.size, tc.ratio); got != tc.want {
				t.Fatalf("EliteCount(%d, %v) = %d, want %d", tc.size, tc.ratio, got, tc.want)
			}
		})
	}
}
