// Package rng provides the seedable generator every random draw in a run
// flows through.
package rng

import (
	"math/bits"
	"time"
)

const (
	wyIncrement = 0x60bee2bee120fc15
	wyMulFirst  = 0xa3b195354a39b70d
	wyMulSecond = 0x1b03738712fad5c9
)

// Wyhash64 is a wyhash64-style counter generator. It is not safe for
// concurrent use; callers that fan work out keep draws on one goroutine.
type Wyhash64 struct {
	state uint64
}

func New(seed uint64) *Wyhash64 {
	return &Wyhash64{state: seed}
}

// NewFromTime seeds from the sub-second part of the wall clock.
func NewFromTime() *Wyhash64 {
	return New(uint64(time.Now().Nanosecond()))
}

// State reports the current internal state. Restoring it with New resumes
// the exact same sequence.
func (r *Wyhash64) State() uint64 {
	return r.state
}

func (r *Wyhash64) Uint64() uint64 {
	r.state += wyIncrement
	hi, lo := bits.Mul64(r.state, wyMulFirst)
	hi, lo = bits.Mul64(hi^lo, wyMulSecond)
	return hi ^ lo
}

// InRange draws uniformly from the inclusive range [min, max]. Arguments
// are swapped when given in reverse order.
func (r *Wyhash64) InRange(min, max uint64) uint64 {
	if max < min {
		min, max = max, min
	}
	span := max - min + 1
	if span == 0 {
		return r.Uint64()
	}
	return min + r.Uint64()%span
}

// Intn draws from [0, n). It panics when n <= 0, like math/rand.
func (r *Wyhash64) Intn(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to Intn")
	}
	return int(r.InRange(0, uint64(n-1)))
}

// Percent draws from [0, 100] inclusive.
func (r *Wyhash64) Percent() uint64 {
	return r.InRange(0, 100)
}

// Chance fires with probability pct/100. Zero never fires; 100 or more
// always does.
func (r *Wyhash64) Chance(pct uint64) bool {
	return r.InRange(0, 99) < pct
}
