package models

import (
	"time"

	"bitbucket.org/verdealba/cultiva_backend/utils"
)

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

// key
func (s GeneticStrain) GetId() int {
	return s.ID
}

func (s GeneticStrain) GetDefault(id int) Data {
	return GeneticStrain{
		ID:              id,
		IsSeedAvailable: utils.NewFalse(),
		Favorite:        utils.NewFalse(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func (s Sala) GetId() int {
	return s.ID
}

func (s Sala) GetDefault(id int) Data {
	return Sala{
		ID:        id,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (c Ciclo) GetId() int {
	return c.ID
}

func (c Ciclo) GetDefault(id int) Data {
	return Ciclo{
		ID:          id,
		Phase:       CicloPhaseVegetative,
		State:       CicloStateActive,
		IsPhenohunt: utils.NewFalse(),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}
