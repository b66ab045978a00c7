package models

import "time"

// LegacySeed is a pre-unification seed-inventory row. The one-time data
// migration folds these into GeneticStrain.seed_stock and deletes them
// (see workflow/migrationWorkflow.go).
type LegacySeed struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    string    `gorm:"index;size:36;not null" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Bank      string    `gorm:"size:100" json:"bank"`
	Parents   string    `gorm:"size:191" json:"parents"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
