package evo

import (
	"fmt"
	"math"

	"bfevolve/internal/rng"
)

// Selector picks a parent pair from a population ranked best first.
type Selector interface {
	Name() string
	PickParents(r *rng.Wyhash64, ranked Population) (Individual, Individual, error)
}

// RankWindowSelector draws two distinct parents uniformly from the best
// BreedFraction of the ranked population; the rest never breed.
type RankWindowSelector struct {
	BreedFraction float64
}

func (RankWindowSelector) Name() string {
	return "rank_window"
}

func (s RankWindowSelector) PickParents(r *rng.Wyhash64, ranked Population) (Individual, Individual, error) {
	if r == nil {
		return Individual{}, Individual{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return Individual{}, Individual{}, fmt.Errorf("cannot select from an empty population")
	}
	if len(ranked) == 1 {
		return ranked[0], ranked[0], nil
	}

	window := s.Window(len(ranked))
	first := r.Intn(window)
	second := r.Intn(window - 1)
	if second >= first {
		second++
	}
	return ranked[first], ranked[second], nil
}

// Window is the number of top-ranked individuals eligible to breed, never
// fewer than two so that parents can differ.
func (s RankWindowSelector) Window(size int) int {
	window := int(math.Round(float64(size) * s.BreedFraction))
	if window < 2 {
		window = 2
	}
	if window > size {
		window = size
	}
	return window
}

// TournamentSelector fills each parent slot with the fittest of Size
// individuals sampled uniformly from the whole population. Both slots may
// pick the same individual.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParents(r *rng.Wyhash64, ranked Population) (Individual, Individual, error) {
	if r == nil {
		return Individual{}, Individual{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return Individual{}, Individual{}, fmt.Errorf("cannot select from an empty population")
	}
	return s.pick(r, ranked), s.pick(r, ranked), nil
}

func (s TournamentSelector) pick(r *rng.Wyhash64, ranked Population) Individual {
	size := s.Size
	if size <= 0 {
		size = 3
	}
	best := ranked[r.Intn(len(ranked))]
	for i := 1; i < size; i++ {
		candidate := ranked[r.Intn(len(ranked))]
		if candidate.Fitness() < best.Fitness() {
			best = candidate
		}
	}
	return best
}

func SelectorFromName(name string, breedFraction float64, tournamentSize int) (Selector, error) {
	switch name {
	case "", "rank_window", "rank":
		if breedFraction <= 0 || breedFraction > 1 {
			return nil, fmt.Errorf("breed fraction must be in (0, 1]: %v", breedFraction)
		}
		return RankWindowSelector{BreedFraction: breedFraction}, nil
	case "tournament":
		if tournamentSize <= 0 {
			return nil, fmt.Errorf("tournament size must be > 0: %d", tournamentSize)
		}
		return TournamentSelector{Size: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("unsupported selection strategy: %s", name)
	}
}

// EliteCount is round(size*ratio), raised to one whenever ratio is positive
// so the best individual always survives.
func EliteCount(size int, ratio float64) int {
	if ratio <= 0 || size <= 0 {
		return 0
	}
	count := int(math.Round(float64(size) * ratio))
	if count < 1 {
		count = 1
	}
	if count > size {
		count = size
	}
	return count
}
