package convocacao

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/convocation-engine/generic"
)

// Run merges the tables as of now and runs the selection. The configuration
// is validated first, so a bad slot count never reaches Select.
func Run(data generic.SheetData, cfg SelectionConfig, now time.Time) (*SelectionResult, error) {
	out, err := (&Pipeline{Clock: generic.FixedClock(now)}).RunData(data, cfg)
	if err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Pipeline chains a TableSource, the merger and the selector.
type Pipeline struct {
	Clock  generic.Clock // defaults to generic.SystemClock
	Logger *zap.Logger
}

// Outcome is everything a caller needs to present a run.
type Outcome struct {
	ReferenceDate time.Time
	Officers      []*Officer // merged, base-table order
	Result        *SelectionResult
}

// Execute loads a snapshot from src and runs it.
func (p *Pipeline) Execute(ctx context.Context, src generic.TableSource, cfg SelectionConfig) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	data, err := generic.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load tables: %w", err)
	}
	return p.RunData(data, cfg)
}

// RunData runs an already-loaded snapshot.
func (p *Pipeline) RunData(data generic.SheetData, cfg SelectionConfig) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := p.Clock
	if clock == nil {
		clock = generic.SystemClock
	}
	now := clock()

	merger := &Merger{Now: now, Logger: p.Logger}
	officers, err := merger.Merge(data)
	if err != nil {
		return nil, err
	}

	selector := &Selector{Logger: p.Logger}
	return &Outcome{
		ReferenceDate: now,
		Officers:      officers,
		Result:        selector.Run(officers, cfg),
	}, nil
}
