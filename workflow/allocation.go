package workflow

import (
	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/google/uuid"
)

// AllocationKey identifies the stock bucket a cycle allocation draws from.
type AllocationKey struct {
	StrainId int
	Source   models.StockSource
}

// ExpandAllocations turns allocation inputs into CicloGenetic rows. An input
// flagged TrackIndividually becomes Quantity rows of one plant each, every
// row carrying its own pheno id so decisions can target single plants.
// Strain names are snapshotted from the catalog at expansion time.
func ExpandAllocations(inputs []models.NewGeneticAllocation, names map[int]string) []models.CicloGenetic {
	entries := make([]models.CicloGenetic, 0, len(inputs))
	for _, input := range inputs {
		name := names[input.StrainId]
		if input.TrackIndividually {
			for i := 0; i < input.Quantity; i++ {
				phenoId := input.PhenoId
				if phenoId == "" || i > 0 {
					phenoId = uuid.NewString()
				}
				entries = append(entries, models.CicloGenetic{
					StrainId: input.StrainId,
					Name:     name,
					Quantity: 1,
					Source:   input.Source,
					PhenoId:  phenoId,
					Decision: models.PhenoDecisionEvaluating,
				})
			}
		} else {
			entries = append(entries, models.CicloGenetic{
				StrainId: input.StrainId,
				Name:     name,
				Quantity: input.Quantity,
				Source:   input.Source,
			})
		}
	}
	return entries
}

// HasTrackedIndividuals reports whether any allocation tracks single plants,
// which flags the cycle as a phenohunt.
func HasTrackedIndividuals(entries []models.CicloGenetic) bool {
	for _, entry := range entries {
		if entry.IsTracked() {
			return true
		}
	}
	return false
}

// TotalsByBucket sums allocation quantities per (strain, source) bucket.
// A tracked individual counts as one unit, so the sum of aggregated
// quantities plus the count of tracked rows equals the amount debited.
func TotalsByBucket(entries []models.CicloGenetic) map[AllocationKey]int {
	totals := make(map[AllocationKey]int)
	for _, entry := range entries {
		key := AllocationKey{StrainId: entry.StrainId, Source: entry.Source}
		totals[key] += entry.Quantity
	}
	return totals
}

// ComputeAllocationDeltas nets an allocation replacement into one signed
// requirement per bucket: conceptually the full original allocation is
// credited back and the new one debited, so a strain appearing in both sets
// yields a single net delta instead of two independent stock movements.
// Positive values are additional debits, negative values are credits.
func ComputeAllocationDeltas(oldEntries, newEntries []models.CicloGenetic) map[AllocationKey]int {
	deltas := make(map[AllocationKey]int)
	for key, qty := range TotalsByBucket(newEntries) {
		deltas[key] += qty
	}
	for key, qty := range TotalsByBucket(oldEntries) {
		deltas[key] -= qty
	}
	for key, qty := range deltas {
		if qty == 0 {
			delete(deltas, key)
		}
	}
	return deltas
}
