package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/shopspring/decimal"
)

// LogEntry is one journal record of a cycle, scoped to a week number.
// Append-only from the client's perspective; individual deletion is allowed.
type LogEntry struct {
	ID      int          `gorm:"primary_key" json:"id"`
	UserId  string       `gorm:"index;size:36;not null" json:"user_id"`
	CicloId int          `gorm:"index;not null" json:"ciclo_id" binding:"required"`
	Week    int          `gorm:"index;not null" json:"week" binding:"required"`
	Type    LogEntryType `gorm:"type:enum('WATERING','SOLUTION_CHANGE','PEST_CONTROL','PRUNING','TRANSPLANT');not null" json:"type" binding:"required"`
	Date    time.Time    `gorm:"not null" json:"date"`
	// watering / solution change
	Ph          decimal.Decimal `gorm:"type:decimal(6,2);default:0" json:"ph"`
	Ec          decimal.Decimal `gorm:"type:decimal(6,2);default:0" json:"ec"`
	Liters      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"liters"`
	Fertilizers StringList      `gorm:"type:json" json:"fertilizers"`
	// pruning
	PruningType string `gorm:"size:50" json:"pruning_type"`
	CloneCount  int    `gorm:"default:0" json:"clone_count"`
	// transplant
	TransplantFrom string    `gorm:"size:100" json:"transplant_from"`
	TransplantTo   string    `gorm:"size:100" json:"transplant_to"`
	Notes          string    `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewLogEntry struct {
	// CicloId comes from the route, not the request body
	CicloId        int             `json:"-"`
	Week           int             `json:"week" binding:"required"`
	Type           LogEntryType    `json:"type" binding:"required"`
	Date           *time.Time      `json:"date"`
	Ph             decimal.Decimal `json:"ph"`
	Ec             decimal.Decimal `json:"ec"`
	Liters         decimal.Decimal `json:"liters"`
	Fertilizers    StringList      `json:"fertilizers"`
	PruningType    string          `json:"pruning_type"`
	CloneCount     int             `json:"clone_count"`
	TransplantFrom string          `json:"transplant_from"`
	TransplantTo   string          `json:"transplant_to"`
	Notes          string          `json:"notes"`
}

func (input *NewLogEntry) validate(ctx context.Context, userId string) (*Ciclo, error) {
	if !input.Type.Valid() {
		return nil, errors.New("invalid log entry type")
	}
	if input.Week <= 0 {
		return nil, errors.New("week is required")
	}
	ciclo, err := utils.FetchModel[Ciclo](ctx, userId, input.CicloId)
	if err != nil {
		return nil, errors.New("ciclo not found")
	}
	if ciclo.State == CicloStateFinalized {
		return nil, errors.New("ciclo is finalized")
	}
	if ciclo.State == CicloStateDrying && config.BlockLogsWhileDrying() {
		return nil, errors.New("ciclo is drying")
	}
	return ciclo, nil
}

// CreateLogEntry inserts the entry and bumps the cycle's denormalized log
// summary in one transaction. The counter is advisory: deletions do not
// decrement it (see cmd/logcount-reconcile).
func CreateLogEntry(ctx context.Context, input *NewLogEntry) (*LogEntry, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := input.validate(ctx, userId)
	if err != nil {
		return nil, err
	}

	entryDate := time.Now().UTC()
	if input.Date != nil {
		entryDate = *input.Date
	}

	entry := LogEntry{
		UserId:         userId,
		CicloId:        input.CicloId,
		Week:           input.Week,
		Type:           input.Type,
		Date:           entryDate,
		Ph:             input.Ph,
		Ec:             input.Ec,
		Liters:         input.Liters,
		Fertilizers:    input.Fertilizers,
		PruningType:    input.PruningType,
		CloneCount:     input.CloneCount,
		TransplantFrom: input.TransplantFrom,
		TransplantTo:   input.TransplantTo,
		Notes:          input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	err = tx.WithContext(ctx).Model(&Ciclo{}).Where("id = ?", ciclo.ID).
		Updates(map[string]interface{}{
			"log_count":     ciclo.LogCount + 1,
			"last_log_type": input.Type,
			"last_log_at":   now,
		}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	PublishCollectionEvent(ctx, CollectionCiclos)
	return &entry, nil
}

func DeleteLogEntry(ctx context.Context, id int) (*LogEntry, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	result, err := utils.FetchModel[LogEntry](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	PublishCollectionEvent(ctx, CollectionCiclos)
	return result, nil
}

func GetLogEntries(ctx context.Context, cicloId int, week *int) ([]*LogEntry, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ? AND ciclo_id = ?", userId, cicloId)
	if week != nil && *week > 0 {
		dbCtx = dbCtx.Where("week = ?", *week)
	}
	var entries []*LogEntry
	err := dbCtx.Order("date DESC, id DESC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
