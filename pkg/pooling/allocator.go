// Package pooling splits a session's tropas into digestion pools.
package pooling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/labflow/sanidad/pkg/errors"
	"github.com/labflow/sanidad/pkg/models"
)

const (
	// DefaultSampleWeightGrams is the diaphragm sample weight per animal
	DefaultSampleWeightGrams = 5
	// DefaultMinLastPoolSamples is the smallest acceptable final pool; a
	// shorter tail is merged into the previous pool
	DefaultMinLastPoolSamples = 4
)

// Contribution records how many samples a tropa supplies to one pool
type Contribution struct {
	TropaNumber string
	Count       int
}

// PoolDraft is an allocated pool before persistence. RangeStart and RangeEnd
// are 1-based positions over the session's global sample order.
type PoolDraft struct {
	Number        string
	SampleCount   int
	Weight        float64
	RangeStart    int
	RangeEnd      int
	Contributions []Contribution
}

// Composition renders the contributing tropas as "a(2), b(3)"
func (d *PoolDraft) Composition() string {
	parts := make([]string, 0, len(d.Contributions))
	for _, c := range d.Contributions {
		parts = append(parts, fmt.Sprintf("%s(%d)", c.TropaNumber, c.Count))
	}
	return strings.Join(parts, ", ")
}

// TropaList renders the contributing tropa numbers as "a/b", positionally
// aligned with CountList
func (d *PoolDraft) TropaList() string {
	parts := make([]string, 0, len(d.Contributions))
	for _, c := range d.Contributions {
		parts = append(parts, c.TropaNumber)
	}
	return strings.Join(parts, "/")
}

// CountList renders the contributed sample counts as "2/3", positionally
// aligned with TropaList
func (d *PoolDraft) CountList() string {
	parts := make([]string, 0, len(d.Contributions))
	for _, c := range d.Contributions {
		parts = append(parts, strconv.Itoa(c.Count))
	}
	return strings.Join(parts, "/")
}

// Allocator holds the tunables of the splitting procedure
type Allocator struct {
	SampleWeightGrams  float64
	MinLastPoolSamples int
}

// NewAllocator returns an allocator with the standard protocol parameters
func NewAllocator() *Allocator {
	return &Allocator{
		SampleWeightGrams:  DefaultSampleWeightGrams,
		MinLastPoolSamples: DefaultMinLastPoolSamples,
	}
}

// Allocate walks the tropas in consumption order and fills pools of up to
// poolSize samples. A tropa larger than the space left in the current pool is
// split across pool boundaries. If the final pool ends up below the minimum,
// it is merged into the previous one, so the last pool may exceed poolSize.
//
// Tropas with no animals are skipped. Sessions whose total sample count is
// below the minimum pool size cannot be allocated.
func (a *Allocator) Allocate(tropas []models.Tropa, poolSize int) ([]PoolDraft, error) {
	if poolSize <= 0 {
		return nil, errors.Newf(errors.CodeValidation, "pool size must be positive, got %d", poolSize)
	}

	ordered := make([]models.Tropa, 0, len(tropas))
	for _, t := range tropas {
		if t.TotalAnimals > 0 {
			ordered = append(ordered, t)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	total := 0
	for _, t := range ordered {
		total += t.TotalAnimals
	}
	if total == 0 {
		return nil, errors.New(errors.CodeInsufficientInput, "no samples to allocate")
	}
	if total < a.MinLastPoolSamples {
		return nil, errors.Newf(errors.CodeInsufficientInput, "%d samples is below the minimum pool of %d", total, a.MinLastPoolSamples)
	}

	var pools []PoolDraft
	var current []Contribution
	currentCount := 0
	globalOrder := 1

	closePool := func() {
		draft := PoolDraft{
			Number:        fmt.Sprintf("%03d", len(pools)+1),
			SampleCount:   currentCount,
			Weight:        float64(currentCount) * a.SampleWeightGrams,
			RangeStart:    globalOrder,
			RangeEnd:      globalOrder + currentCount - 1,
			Contributions: current,
		}
		pools = append(pools, draft)
		globalOrder += currentCount
		current = nil
		currentCount = 0
	}

	for _, t := range ordered {
		remaining := t.TotalAnimals
		for remaining > 0 {
			take := poolSize - currentCount
			if take > remaining {
				take = remaining
			}
			current = append(current, Contribution{TropaNumber: t.TropaNumber, Count: take})
			currentCount += take
			remaining -= take

			if currentCount == poolSize {
				closePool()
			}
		}
	}
	if currentCount > 0 {
		closePool()
	}

	// undersized tail folds into the previous pool
	if len(pools) > 1 && pools[len(pools)-1].SampleCount < a.MinLastPoolSamples {
		last := pools[len(pools)-1]
		prev := &pools[len(pools)-2]
		prev.SampleCount += last.SampleCount
		prev.Weight = float64(prev.SampleCount) * a.SampleWeightGrams
		prev.RangeEnd = last.RangeEnd
		prev.Contributions = append(prev.Contributions, last.Contributions...)
		pools = pools[:len(pools)-1]
	}

	return pools, nil
}
