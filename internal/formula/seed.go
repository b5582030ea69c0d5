package formula

import (
	"context"
	"errors"

	"github.com/ziadkadry99/formula-canvas/internal/audit"
)

// SampleID is the id of the sample formula created by Seed.
const SampleID = "formula-1"

var sampleItems = []Item{
	{Ref: "ing-1", Amount: 12},  // Iso E Super
	{Ref: "ing-2", Amount: 4.5}, // Hedione HC
	{Ref: "ing-3", Amount: 2.8}, // Bergamot Oil Reggio
	{Ref: "ing-4", Amount: 0.7}, // Ambroxan
}

// Seed creates the sample formula unless it already exists. It reports
// whether anything was created.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	if _, err := s.Get(ctx, SampleID); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	ctx = WithActor(ctx, audit.ActorSystem, "seed")
	if _, err := s.Create(ctx, Formula{
		ID:            SampleID,
		Name:          "Bergamot & Cedar Study #4",
		Solvent:       "Perfumer's Alcohol (SDA 40B)",
		SolventAmount: 80,
		TargetTotal:   DefaultTargetTotal,
	}); err != nil {
		return false, err
	}
	for _, it := range sampleItems {
		if err := s.AddLineItem(ctx, SampleID, it.Ref); err != nil {
			return true, err
		}
		if err := s.SetAmount(ctx, SampleID, it.Ref, it.Amount); err != nil {
			return true, err
		}
	}
	return true, nil
}
