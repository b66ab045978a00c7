package workflow

import (
	"testing"

	"bitbucket.org/verdealba/cultiva_backend/models"
)

func TestExpandAllocationsAggregated(t *testing.T) {
	inputs := []models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 6, Source: models.StockSourceClone},
	}
	entries := ExpandAllocations(inputs, map[int]string{1: "Gorila"})

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Quantity != 6 {
		t.Fatalf("expected quantity 6, got %d", entries[0].Quantity)
	}
	if entries[0].Name != "Gorila" {
		t.Fatalf("expected snapshotted name, got %q", entries[0].Name)
	}
	if entries[0].IsTracked() {
		t.Fatal("aggregated entry must not carry a pheno id")
	}
}

func TestExpandAllocationsTracked(t *testing.T) {
	inputs := []models.NewGeneticAllocation{
		{StrainId: 2, Quantity: 4, Source: models.StockSourceSeed, TrackIndividually: true},
	}
	entries := ExpandAllocations(inputs, map[int]string{2: "Kush"})

	if len(entries) != 4 {
		t.Fatalf("expected 4 single-plant entries, got %d", len(entries))
	}
	seen := make(map[string]bool)
	for i, entry := range entries {
		if entry.Quantity != 1 {
			t.Fatalf("entry %d quantity %d, want 1", i, entry.Quantity)
		}
		if !entry.IsTracked() {
			t.Fatalf("entry %d has no pheno id", i)
		}
		if seen[entry.PhenoId] {
			t.Fatalf("duplicate pheno id %q", entry.PhenoId)
		}
		seen[entry.PhenoId] = true
		if entry.Decision != models.PhenoDecisionEvaluating {
			t.Fatalf("entry %d starts in decision %q", i, entry.Decision)
		}
	}
}

func TestExpandAllocationsPreservesSuppliedPhenoId(t *testing.T) {
	inputs := []models.NewGeneticAllocation{
		{StrainId: 2, Quantity: 1, Source: models.StockSourceClone, TrackIndividually: true, PhenoId: "keep-me"},
	}
	entries := ExpandAllocations(inputs, map[int]string{2: "Kush"})
	if len(entries) != 1 || entries[0].PhenoId != "keep-me" {
		t.Fatalf("resubmitted pheno id must survive expansion, got %+v", entries)
	}
}

func TestTotalsByBucket(t *testing.T) {
	entries := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 3, Source: models.StockSourceClone},
		{StrainId: 1, Quantity: 2, Source: models.StockSourceSeed},
		{StrainId: 1, Quantity: 4, Source: models.StockSourceClone, TrackIndividually: true},
	}, map[int]string{1: "Gorila"})

	totals := TotalsByBucket(entries)
	if got := totals[AllocationKey{StrainId: 1, Source: models.StockSourceClone}]; got != 7 {
		t.Fatalf("clone bucket expected 7, got %d", got)
	}
	if got := totals[AllocationKey{StrainId: 1, Source: models.StockSourceSeed}]; got != 2 {
		t.Fatalf("seed bucket expected 2, got %d", got)
	}
}

func TestHasTrackedIndividuals(t *testing.T) {
	plain := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 3, Source: models.StockSourceClone},
	}, nil)
	if HasTrackedIndividuals(plain) {
		t.Fatal("aggregated-only allocations are not a phenohunt")
	}

	mixed := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 3, Source: models.StockSourceClone},
		{StrainId: 2, Quantity: 1, Source: models.StockSourceSeed, TrackIndividually: true},
	}, nil)
	if !HasTrackedIndividuals(mixed) {
		t.Fatal("any tracked entry makes the cycle a phenohunt")
	}
}

// Raising the quantity of a strain already allocated must net to a single
// delta, not a full credit plus a full debit.
func TestComputeAllocationDeltasNetsQuantityChange(t *testing.T) {
	old := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 2, Source: models.StockSourceClone},
	}, nil)
	updated := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 5, Source: models.StockSourceClone},
	}, nil)

	deltas := ComputeAllocationDeltas(old, updated)
	if len(deltas) != 1 {
		t.Fatalf("expected exactly one delta, got %v", deltas)
	}
	if got := deltas[AllocationKey{StrainId: 1, Source: models.StockSourceClone}]; got != 3 {
		t.Fatalf("expected net debit of 3, got %d", got)
	}
}

func TestComputeAllocationDeltasSwapAndRemove(t *testing.T) {
	old := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 4, Source: models.StockSourceClone},
		{StrainId: 2, Quantity: 2, Source: models.StockSourceSeed},
	}, nil)
	updated := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 4, Source: models.StockSourceClone},
		{StrainId: 3, Quantity: 1, Source: models.StockSourceClone},
	}, nil)

	deltas := ComputeAllocationDeltas(old, updated)

	// unchanged bucket produces no entry at all
	if _, ok := deltas[AllocationKey{StrainId: 1, Source: models.StockSourceClone}]; ok {
		t.Fatal("unchanged allocation must not produce a delta")
	}
	if got := deltas[AllocationKey{StrainId: 2, Source: models.StockSourceSeed}]; got != -2 {
		t.Fatalf("removed allocation expected credit of 2, got %d", got)
	}
	if got := deltas[AllocationKey{StrainId: 3, Source: models.StockSourceClone}]; got != 1 {
		t.Fatalf("added allocation expected debit of 1, got %d", got)
	}
}

// Switching source for the same strain moves stock between the two buckets.
func TestComputeAllocationDeltasSourceSwitch(t *testing.T) {
	old := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 3, Source: models.StockSourceClone},
	}, nil)
	updated := ExpandAllocations([]models.NewGeneticAllocation{
		{StrainId: 1, Quantity: 3, Source: models.StockSourceSeed},
	}, nil)

	deltas := ComputeAllocationDeltas(old, updated)
	if got := deltas[AllocationKey{StrainId: 1, Source: models.StockSourceClone}]; got != -3 {
		t.Fatalf("clone bucket expected credit of 3, got %d", got)
	}
	if got := deltas[AllocationKey{StrainId: 1, Source: models.StockSourceSeed}]; got != 3 {
		t.Fatalf("seed bucket expected debit of 3, got %d", got)
	}
}
