package mcts

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/pbnjay/memory"
	"lukechampine.com/frand"

	"github.com/benbeisheim/chessmcts-backend/internal/model"
)

// Evaluator estimates a position. It returns white's expected score in
// [0, 1]. Evaluate may block; the search does not preempt it.
type Evaluator interface {
	Evaluate(ctx context.Context, planes model.Planes) (float64, error)
}

type Options struct {
	// Exploration is the UCT constant C.
	Exploration float64
	// RolloutDepth caps simulated plies per rollout.
	RolloutDepth int
	// CaptureBias and CheckBias are the probabilities of preferring a
	// capture, then a checking move, during rollouts.
	CaptureBias float64
	CheckBias   float64
	// YieldEvery is how many iterations run between scheduler yields.
	YieldEvery int
	// MaxNodes bounds the tree. Zero sizes it from physical memory.
	MaxNodes int
	// MemoryFraction is the share of physical memory used when MaxNodes is
	// zero.
	MemoryFraction float64
	// Seed makes searches reproducible. Zero draws a random seed.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{
		Exploration:    math.Sqrt2,
		RolloutDepth:   50,
		CaptureBias:    0.7,
		CheckBias:      0.5,
		YieldEvery:     50,
		MemoryFraction: 0.05,
	}
}

// Budget stops a search at whichever limit is hit first. A zero field means
// no limit of that kind; if both are zero DefaultSimulations applies.
type Budget struct {
	Simulations int
	Time        time.Duration
}

const DefaultSimulations = 1000

// approxNodeBytes is a rough per-node footprint including its move list.
const approxNodeBytes = 1536

const maxDefaultNodes = 1 << 22

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Exploration <= 0 {
		o.Exploration = d.Exploration
	}
	if o.RolloutDepth <= 0 {
		o.RolloutDepth = d.RolloutDepth
	}
	if o.CaptureBias < 0 || o.CaptureBias > 1 {
		o.CaptureBias = d.CaptureBias
	}
	if o.CheckBias < 0 || o.CheckBias > 1 {
		o.CheckBias = d.CheckBias
	}
	if o.YieldEvery <= 0 {
		o.YieldEvery = d.YieldEvery
	}
	if o.MemoryFraction <= 0 || o.MemoryFraction > 1 {
		o.MemoryFraction = d.MemoryFraction
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = nodesForMemory(o.MemoryFraction)
	}
	// Room for the root and at least one child.
	if o.MaxNodes < 2 {
		o.MaxNodes = 2
	}
	return o
}

func nodesForMemory(fraction float64) int {
	total := memory.TotalMemory()
	n := int(fraction * float64(total) / approxNodeBytes)
	if n <= 0 || n > maxDefaultNodes {
		return maxDefaultNodes
	}
	return n
}

func newRNG(seed uint64) *frand.RNG {
	if seed == 0 {
		return frand.NewCustom(frand.Bytes(32), 1024, 12)
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	return frand.NewCustom(key[:], 1024, 12)
}
