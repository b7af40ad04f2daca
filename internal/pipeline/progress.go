// Package pipeline computes how far a job item has moved along its ordered station route.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"floorsync/internal/model"
)

// ErrInvalidSteps is returned when a route violates the dense 1..N, single-terminal-last shape
var ErrInvalidSteps = errors.New("invalid pipeline steps")

// StepProgress one step after clamping, with its share of the planned quantity
type StepProgress struct {
	StepID               string  `json:"step_id"`
	StationID            string  `json:"station_id"`
	StationName          string  `json:"station_name,omitempty"`
	Position             int     `json:"position"`
	IsTerminal           bool    `json:"is_terminal"`
	RequiresFirstArticle bool    `json:"requires_first_article"`
	Wip                  int64   `json:"wip"`
	Width                float64 `json:"width"` // wip / planned, 0 when nothing is planned
}

// Progress derived completion state of one job item
type Progress struct {
	PlannedQuantity   int64          `json:"planned_quantity"`
	CompletedGood     int64          `json:"completed_good"`
	TotalWip          int64          `json:"total_wip"`
	CompletionPercent int            `json:"completion_percent"`
	Steps             []StepProgress `json:"steps"`
	BottleneckIndex   int            `json:"bottleneck_index"` // index into Steps, -1 when there is none
	Segments          []StepProgress `json:"segments"`         // non-zero steps in route order
	NotEntered        int64          `json:"not_entered"`
	NotEnteredWidth   float64        `json:"not_entered_width"`
	MultiStation      bool           `json:"multi_station"`
}

// Bottleneck returns the non-terminal step holding the most work in progress
func (p Progress) Bottleneck() (StepProgress, bool) {
	if p.BottleneckIndex < 0 || p.BottleneckIndex >= len(p.Steps) {
		return StepProgress{}, false
	}
	return p.Steps[p.BottleneckIndex], true
}

// Compute derives progress for a job item planned at planned units over steps.
//
// Input need not be sorted or consistent: negative balances count as zero, and balances are cut
// so their sum never exceeds the planned quantity. The terminal step is served first, then the
// remaining steps from the most downstream one back to the first.
func Compute(planned int64, steps []*model.PipelineStep) Progress {
	if planned < 0 {
		planned = 0
	}

	sorted := make([]*model.PipelineStep, 0, len(steps))
	for _, s := range steps {
		if s != nil {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := Progress{
		PlannedQuantity: planned,
		Steps:           make([]StepProgress, len(sorted)),
		BottleneckIndex: -1,
		Segments:        make([]StepProgress, 0, len(sorted)),
		MultiStation:    len(sorted) > 1,
	}
	if len(sorted) == 0 {
		out.NotEntered = planned
		if planned > 0 {
			out.NotEnteredWidth = 1
		}
		return out
	}

	terminal := len(sorted) - 1
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].IsTerminal {
			terminal = i
			break
		}
	}

	for i, s := range sorted {
		out.Steps[i] = StepProgress{
			StepID:               s.ID,
			StationID:            s.StationID,
			StationName:          s.StationName,
			Position:             s.Position,
			IsTerminal:           i == terminal,
			RequiresFirstArticle: s.RequiresFirstArticle,
		}
	}

	remaining := planned
	take := func(i int) {
		wip := sorted[i].Wip
		if wip < 0 {
			wip = 0
		}
		if wip > remaining {
			wip = remaining
		}
		remaining -= wip
		out.Steps[i].Wip = wip
	}
	take(terminal)
	for i := len(sorted) - 1; i >= 0; i-- {
		if i != terminal {
			take(i)
		}
	}

	var best int64
	for i := range out.Steps {
		step := &out.Steps[i]
		out.TotalWip += step.Wip
		step.Width = fraction(step.Wip, planned)
		if step.Wip > 0 {
			out.Segments = append(out.Segments, *step)
		}
		if i != terminal && step.Wip > best {
			best = step.Wip
			out.BottleneckIndex = i
		}
	}

	out.CompletedGood = out.Steps[terminal].Wip
	out.CompletionPercent = percent(out.CompletedGood, planned)
	out.NotEntered = planned - out.TotalWip
	out.NotEnteredWidth = fraction(out.NotEntered, planned)
	return out
}

// ValidateSteps checks positions are exactly 1..N and that only the last step is terminal
func ValidateSteps(steps []*model.PipelineStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidSteps)
	}
	sorted := append([]*model.PipelineStep(nil), steps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	for i, s := range sorted {
		if s.Position != i+1 {
			return fmt.Errorf("%w: expected position %d, got %d", ErrInvalidSteps, i+1, s.Position)
		}
		last := i == len(sorted)-1
		if s.IsTerminal != last {
			if last {
				return fmt.Errorf("%w: last step %d is not terminal", ErrInvalidSteps, s.Position)
			}
			return fmt.Errorf("%w: step %d is terminal but not last", ErrInvalidSteps, s.Position)
		}
	}
	return nil
}

func percent(done, planned int64) int {
	if planned <= 0 {
		return 0
	}
	p := int(math.Round(float64(done) / float64(planned) * 100))
	if p > 100 {
		return 100
	}
	return p
}

func fraction(part, planned int64) float64 {
	if planned <= 0 || part <= 0 {
		return 0
	}
	return float64(part) / float64(planned)
}
