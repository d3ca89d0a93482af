// Package report assembles the row data for the analysis, traceability and
// release documents produced after a session is completed. Rendering is left
// to the downstream document generator.
package report

import (
	"sort"
	"strings"

	"github.com/labflow/sanidad/pkg/models"
)

// Disposition is the release decision for a tropa
type Disposition string

const (
	DispositionReleased Disposition = "LIBERADO"
	DispositionRetained Disposition = "DECOMISO/RE-ANALISIS"
)

// AnalysisRow is one line of the analysis document (one per pool)
type AnalysisRow struct {
	PoolNumber   string            `json:"pool_number"`
	SampleCount  int               `json:"sample_count"`
	Weight       float64           `json:"weight"`
	Result       models.PoolResult `json:"result"`
	LarvaeCount  int               `json:"larvae_count"`
	Composition  string            `json:"composition"`
	Observations string            `json:"observations"`
}

// TraceRow is one line of the traceability document, mapping a pool back to
// its sample range and contributing tropas
type TraceRow struct {
	PoolNumber string `json:"pool_number"`
	RangeStart int    `json:"range_start"`
	RangeEnd   int    `json:"range_end"`
	Tropas     string `json:"tropas"`
	Counts     string `json:"counts"`
}

// ReleaseRow is one line of the release document (one per tropa)
type ReleaseRow struct {
	TropaNumber  string      `json:"tropa_number"`
	TotalAnimals int         `json:"total_animals"`
	Species      string      `json:"species"`
	Disposition  Disposition `json:"disposition"`
	Pools        []string    `json:"pools"`
}

// Report holds the assembled rows for a session's documents
type Report struct {
	Jornada      models.Jornada `json:"jornada"`
	Analysis     []AnalysisRow  `json:"analysis"`
	Traceability []TraceRow     `json:"traceability"`
	Release      []ReleaseRow   `json:"release"`
}

// Build assembles the report rows. A tropa is released only when every pool
// it contributed to came back negative; anything else holds the carcasses
// back for seizure or re-analysis.
func Build(jornada models.Jornada, tropas []models.Tropa, pools []models.Pool) *Report {
	sorted := make([]models.Pool, len(pools))
	copy(sorted, pools)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PoolNumber < sorted[j].PoolNumber })

	r := &Report{
		Jornada:      jornada,
		Analysis:     make([]AnalysisRow, 0, len(sorted)),
		Traceability: make([]TraceRow, 0, len(sorted)),
		Release:      make([]ReleaseRow, 0, len(tropas)),
	}

	for _, p := range sorted {
		r.Analysis = append(r.Analysis, AnalysisRow{
			PoolNumber:   p.PoolNumber,
			SampleCount:  p.SampleCount,
			Weight:       p.Weight,
			Result:       p.Result,
			LarvaeCount:  p.LarvaeCount,
			Composition:  p.Composition,
			Observations: p.Observations,
		})
		r.Traceability = append(r.Traceability, TraceRow{
			PoolNumber: p.PoolNumber,
			RangeStart: p.RangeStart,
			RangeEnd:   p.RangeEnd,
			Tropas:     p.CompositionTropas,
			Counts:     p.CompositionCounts,
		})
	}

	ordered := make([]models.Tropa, len(tropas))
	copy(ordered, tropas)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	for _, t := range ordered {
		row := ReleaseRow{
			TropaNumber:  t.TropaNumber,
			TotalAnimals: t.TotalAnimals,
			Species:      t.Species,
			Disposition:  DispositionReleased,
			Pools:        []string{},
		}
		for _, p := range sorted {
			if !poolContains(p, t.TropaNumber) {
				continue
			}
			row.Pools = append(row.Pools, p.PoolNumber)
			if p.Result != models.PoolResultNegative {
				row.Disposition = DispositionRetained
			}
		}
		r.Release = append(r.Release, row)
	}

	return r
}

func poolContains(p models.Pool, tropaNumber string) bool {
	for _, n := range strings.Split(p.CompositionTropas, "/") {
		if n == tropaNumber {
			return true
		}
	}
	return false
}
