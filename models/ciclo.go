package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/shopspring/decimal"
)

// CultivationDetails holds the type-specific sub-record of a cycle. Substrate
// cycles fill the substrate fields, hydroponic cycles the system fields.
type CultivationDetails struct {
	SubstrateMix    string          `json:"substrate_mix,omitempty"`
	PotSizeLiters   decimal.Decimal `json:"pot_size_liters,omitempty"`
	SystemType      string          `json:"system_type,omitempty"`
	ReservoirLiters decimal.Decimal `json:"reservoir_liters,omitempty"`
}

func (d CultivationDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *CultivationDetails) Scan(value interface{}) error {
	if value == nil {
		*d = CultivationDetails{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	}
	return fmt.Errorf("cannot scan %T into CultivationDetails", value)
}

// CicloGenetic is one allocation row of a cycle's genetics: either an
// aggregated quantity of one strain+source, or a single tracked individual
// (phenohunt) with its own pheno id and decision state.
type CicloGenetic struct {
	ID               int           `gorm:"primary_key" json:"id"`
	CicloId          int           `gorm:"index;not null" json:"ciclo_id"`
	StrainId         int           `gorm:"index;default:null" json:"strain_id"`
	Name             string        `gorm:"size:100;not null" json:"name"`
	Quantity         int           `gorm:"not null;default:0" json:"quantity"`
	Source           StockSource   `gorm:"type:enum('CLONE','SEED');default:'CLONE'" json:"source"`
	PhenoId          string        `gorm:"size:36;index;default:null" json:"pheno_id"`
	Decision         PhenoDecision `gorm:"type:enum('EVALUATING','KEEP','DISCARD');default:'EVALUATING'" json:"decision"`
	EvaluationNotes  string        `gorm:"type:text" json:"evaluation_notes"`
	EvaluationTags   StringList    `gorm:"type:json" json:"evaluation_tags"`
	Promoted         *bool         `gorm:"not null;default:false" json:"promoted"`
	PromotedStrainId int           `gorm:"default:null" json:"promoted_strain_id"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTracked reports whether this allocation tracks one individual plant.
func (g CicloGenetic) IsTracked() bool {
	return g.PhenoId != ""
}

// Ciclo is one cultivation run through vegetative/flowering/drying/finalized.
type Ciclo struct {
	ID                  int                `gorm:"primary_key" json:"id"`
	UserId              string             `gorm:"index;size:36;not null" json:"user_id"`
	SalaId              int                `gorm:"index;not null" json:"sala_id" binding:"required"`
	Name                string             `gorm:"size:100;not null" json:"name" binding:"required"`
	Phase               CicloPhase         `gorm:"type:enum('VEGETATIVE','FLOWERING');default:'VEGETATIVE'" json:"phase"`
	State               CicloState         `gorm:"type:enum('ACTIVE','DRYING','FINALIZED');default:'ACTIVE'" json:"state"`
	CultivationType     CultivationType    `gorm:"type:enum('SUBSTRATE','HYDROPONIC');default:'SUBSTRATE'" json:"cultivation_type"`
	CultivationDetails  CultivationDetails `gorm:"type:json" json:"cultivation_details"`
	VegetativeStartDate *time.Time         `json:"vegetative_start_date"`
	FloweringStartDate  *time.Time         `json:"flowering_start_date"`
	VegetativeWeeks     WeekList           `gorm:"type:json" json:"vegetative_weeks"`
	FloweringWeeks      WeekList           `gorm:"type:json" json:"flowering_weeks"`
	Genetics            []CicloGenetic     `gorm:"foreignKey:CicloId" json:"genetics"`
	GeneticsVersion     int                `gorm:"not null;default:0" json:"genetics_version"`
	IsPhenohunt         *bool              `gorm:"not null;default:false" json:"is_phenohunt"`
	Notes               string             `gorm:"type:text" json:"notes"`
	// denormalized log summary; advisory only (see cmd/logcount-reconcile)
	LogCount    int           `gorm:"not null;default:0" json:"log_count"`
	LastLogType *LogEntryType `gorm:"type:enum('WATERING','SOLUTION_CHANGE','PEST_CONTROL','PRUNING','TRANSPLANT');default:null" json:"last_log_type"`
	LastLogAt   *time.Time    `json:"last_log_at"`
	// finalization fields
	DryingStartedAt *time.Time      `json:"drying_started_at"`
	FinalizedAt     *time.Time      `json:"finalized_at"`
	DryWeightGrams  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"dry_weight_grams"`
	FloraDays       int             `gorm:"not null;default:0" json:"flora_days"`
	DryingDays      int             `gorm:"not null;default:0" json:"drying_days"`
	Tags            StringList      `gorm:"type:json" json:"tags"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ActiveWeeks returns the week schedule for the cycle's current phase.
func (c *Ciclo) ActiveWeeks() WeekList {
	if c.Phase == CicloPhaseFlowering {
		return c.FloweringWeeks
	}
	return c.VegetativeWeeks
}

// CurrentPhaseToken returns the phase/state token that drives presentation.
// Drying and finalized states override the week phase; an active flowering
// cycle reports the phase of the week its flowering start date falls in.
func (c *Ciclo) CurrentPhaseToken() string {
	switch c.State {
	case CicloStateDrying:
		return WeekPhaseDrying
	case CicloStateFinalized:
		return string(CicloStateFinalized)
	}
	if c.Phase != CicloPhaseFlowering {
		return WeekPhaseVegetative
	}
	days := DaysSince(c.FloweringStartDate, time.Now())
	if days == nil || *days < 1 || len(c.FloweringWeeks) == 0 {
		return WeekPhasePreFlower
	}
	week := utils.CeilDiv(*days, 7)
	if week > len(c.FloweringWeeks) {
		week = len(c.FloweringWeeks)
	}
	return c.FloweringWeeks[week-1].PhaseName
}

// NewGeneticAllocation is the allocation input of cycle creation and of the
// manage-genetics flow. TrackIndividually expands into one qty-1 allocation
// per plant, each with its own generated pheno id.
type NewGeneticAllocation struct {
	StrainId          int         `json:"strain_id" binding:"required"`
	Quantity          int         `json:"quantity" binding:"required"`
	Source            StockSource `json:"source" binding:"required"`
	TrackIndividually bool        `json:"track_individually"`
	// PhenoId is set by the client only when re-submitting an existing tracked
	// allocation through the manage-genetics flow, so its identity survives.
	PhenoId string `json:"pheno_id"`
}

type NewCiclo struct {
	SalaId              int                    `json:"sala_id" binding:"required"`
	Name                string                 `json:"name" binding:"required"`
	Phase               CicloPhase             `json:"phase"`
	CultivationType     CultivationType        `json:"cultivation_type"`
	CultivationDetails  CultivationDetails     `json:"cultivation_details"`
	VegetativeStartDate *time.Time             `json:"vegetative_start_date"`
	FloweringStartDate  *time.Time             `json:"flowering_start_date"`
	Notes               string                 `json:"notes"`
	Genetics            []NewGeneticAllocation `json:"genetics"`
}

// Validate input for create. Allocation list must be non-empty with positive
// quantities against existing catalog strains.
func (input *NewCiclo) Validate(ctx context.Context, userId string) error {
	if input.Name == "" {
		return errors.New("name is required")
	}
	if input.SalaId <= 0 {
		return errors.New("sala is required")
	}
	if err := utils.ValidateResourceId[Sala](ctx, userId, input.SalaId); err != nil {
		return errors.New("sala not found")
	}
	if len(input.Genetics) == 0 {
		return errors.New("at least one genetic allocation is required")
	}
	if input.Phase == "" {
		input.Phase = CicloPhaseVegetative
	}
	if !input.Phase.Valid() {
		return errors.New("invalid phase")
	}
	if input.CultivationType == "" {
		input.CultivationType = CultivationTypeSubstrate
	}
	if !input.CultivationType.Valid() {
		return errors.New("invalid cultivation type")
	}
	strainIds := make([]int, 0, len(input.Genetics))
	for _, allocation := range input.Genetics {
		if allocation.Quantity <= 0 {
			return errors.New("allocation quantity must be positive")
		}
		if !allocation.Source.Valid() {
			return errors.New("invalid allocation source")
		}
		strainIds = append(strainIds, allocation.StrainId)
	}
	if err := utils.ValidateResourcesId[GeneticStrain, int](ctx, userId, strainIds); err != nil {
		return errors.New("strain not found")
	}
	return nil
}

// UpdateCicloInput carries the editable non-structural fields. Genetics are
// NOT re-diffed here; only the dedicated manage-genetics flow touches stock.
type UpdateCicloInput struct {
	Name                *string             `json:"name"`
	SalaId              *int                `json:"sala_id"`
	Phase               *CicloPhase         `json:"phase"`
	CultivationType     *CultivationType    `json:"cultivation_type"`
	CultivationDetails  *CultivationDetails `json:"cultivation_details"`
	VegetativeStartDate *time.Time          `json:"vegetative_start_date"`
	FloweringStartDate  *time.Time          `json:"flowering_start_date"`
	Notes               *string             `json:"notes"`
}

type FinalizeCicloInput struct {
	DryWeightGrams    string     `json:"dry_weight_grams"`
	Tags              StringList `json:"tags"`
	FavoriteStrainIds []int      `json:"favorite_strain_ids"`
	HarvestName       string     `json:"harvest_name"`
}

func GetCiclo(ctx context.Context, id int) (*Ciclo, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	return utils.FetchModel[Ciclo](ctx, userId, id, "Genetics")
}

func GetCiclos(ctx context.Context, salaId *int) ([]*Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Genetics").Where("user_id = ?", userId)
	if salaId != nil && *salaId > 0 {
		dbCtx = dbCtx.Where("sala_id = ?", *salaId)
	}
	var ciclos []*Ciclo
	err := dbCtx.Where("state <> ?", CicloStateFinalized).
		Order("created_at DESC").Find(&ciclos).Error
	if err != nil {
		return nil, err
	}
	return ciclos, nil
}

// GetFinalizedCiclos is the historical archive view.
func GetFinalizedCiclos(ctx context.Context) ([]*Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var ciclos []*Ciclo
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Genetics").
		Where("user_id = ? AND state = ?", userId, CicloStateFinalized).
		Order("finalized_at DESC").Find(&ciclos).Error
	if err != nil {
		return nil, err
	}
	return ciclos, nil
}

// GetActivePhenohunts lists non-finalized phenohunt cycles for the selection view.
func GetActivePhenohunts(ctx context.Context) ([]*Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var ciclos []*Ciclo
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Genetics").
		Where("user_id = ? AND is_phenohunt = ? AND state <> ?", userId, true, CicloStateFinalized).
		Order("created_at DESC").Find(&ciclos).Error
	if err != nil {
		return nil, err
	}
	return ciclos, nil
}
