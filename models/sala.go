package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
)

// Sala is a physical cultivation room/container grouping cycles.
type Sala struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    string    `gorm:"index;size:36;not null" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSala struct {
	Name     string `json:"name" binding:"required"`
	Position int    `json:"position"`
	Notes    string `json:"notes"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewSala) validate(ctx context.Context, userId string, id int) error {
	if err := utils.ValidateUnique[Sala](ctx, userId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateSala(ctx context.Context, input *NewSala) (*Sala, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	if err := input.validate(ctx, userId, 0); err != nil {
		return nil, err
	}

	sala := Sala{
		UserId:   userId,
		Name:     input.Name,
		Position: input.Position,
		Notes:    input.Notes,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&sala).Error
	if err != nil {
		return nil, err
	}
	return &sala, nil
}

func UpdateSala(ctx context.Context, id int, input *NewSala) (*Sala, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	if err := input.validate(ctx, userId, id); err != nil {
		return nil, err
	}

	sala, err := utils.FetchModel[Sala](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&sala).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Position": input.Position,
		"Notes":    input.Notes,
	}).Error
	if err != nil {
		return nil, err
	}

	return sala, nil
}

func SetSalaPosition(ctx context.Context, id int, position int) (*Sala, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	sala, err := utils.FetchModel[Sala](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&sala).Update("Position", position).Error; err != nil {
		return nil, err
	}
	return sala, nil
}

func GetSala(ctx context.Context, id int) (*Sala, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	return utils.FetchModel[Sala](ctx, userId, id)
}

func GetSalas(ctx context.Context) ([]*Sala, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var salas []*Sala
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("position ASC, id ASC").
		Find(&salas).Error
	if err != nil {
		return nil, err
	}
	return salas, nil
}
