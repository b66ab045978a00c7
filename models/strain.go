package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"gorm.io/gorm"
)

// GeneticStrain is one catalog entry of the shared genetics inventory.
// Stock fields never go negative: guarded debits reject the write instead.
type GeneticStrain struct {
	ID              int       `gorm:"primary_key" json:"id"`
	UserId          string    `gorm:"index;size:36;not null" json:"user_id"`
	Name            string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Bank            string    `gorm:"size:100" json:"bank"`
	Parents         string    `gorm:"size:191" json:"parents"`
	Owner           string    `gorm:"size:100" json:"owner"`
	CloneStock      int       `gorm:"not null;default:0" json:"clone_stock"`
	SeedStock       int       `gorm:"not null;default:0" json:"seed_stock"`
	IsSeedAvailable *bool     `gorm:"not null;default:false" json:"is_seed_available"`
	Favorite        *bool     `gorm:"not null;default:false" json:"favorite"`
	Position        int       `gorm:"not null;default:0" json:"position"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeSave keeps the cached seed-availability flag consistent with the
// actual seed stock.
func (s *GeneticStrain) BeforeSave(tx *gorm.DB) error {
	if s == nil {
		return nil
	}
	if s.Favorite == nil {
		s.Favorite = utils.NewFalse()
	}
	available := s.SeedStock > 0
	s.IsSeedAvailable = &available
	return nil
}

type NewGeneticStrain struct {
	Name       string `json:"name" binding:"required"`
	Bank       string `json:"bank"`
	Parents    string `json:"parents"`
	Owner      string `json:"owner"`
	CloneStock int    `json:"clone_stock"`
	SeedStock  int    `json:"seed_stock"`
	Favorite   *bool  `json:"favorite"`
	Position   int    `json:"position"`
}

// validate input for both create & update. (id = 0 for create)

func (input *NewGeneticStrain) validate(ctx context.Context, userId string, id int) error {
	// strain names are unique case-insensitively within a user's catalog
	if err := utils.ValidateUniqueFold[GeneticStrain](ctx, userId, "name", input.Name, id); err != nil {
		return err
	}
	if input.CloneStock < 0 || input.SeedStock < 0 {
		return errors.New("stock cannot be negative")
	}
	return nil
}

func CreateStrain(ctx context.Context, input *NewGeneticStrain) (*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	if err := input.validate(ctx, userId, 0); err != nil {
		return nil, err
	}

	favorite := input.Favorite
	if favorite == nil {
		favorite = utils.NewFalse()
	}
	strain := GeneticStrain{
		UserId:     userId,
		Name:       input.Name,
		Bank:       input.Bank,
		Parents:    input.Parents,
		Owner:      input.Owner,
		CloneStock: input.CloneStock,
		SeedStock:  input.SeedStock,
		Favorite:   favorite,
		Position:   input.Position,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&strain).Error
	if err != nil {
		return nil, err
	}
	return &strain, nil
}

func UpdateStrain(ctx context.Context, id int, input *NewGeneticStrain) (*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	if err := input.validate(ctx, userId, id); err != nil {
		return nil, err
	}

	strain, err := utils.FetchModel[GeneticStrain](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&strain).Updates(map[string]interface{}{
		"Name":       input.Name,
		"Bank":       input.Bank,
		"Parents":    input.Parents,
		"Owner":      input.Owner,
		"CloneStock": input.CloneStock,
		"SeedStock":  input.SeedStock,
	}).Error
	if err != nil {
		return nil, err
	}
	// re-run hooks for the cached seed flag
	if err := db.WithContext(ctx).Save(&strain).Error; err != nil {
		return nil, err
	}

	return strain, nil
}

// DeleteStrain removes the catalog row. Historical cycles keep their embedded
// allocation snapshots; deletion does not retroactively alter them.
func DeleteStrain(ctx context.Context, id int) (*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	result, err := utils.FetchModel[GeneticStrain](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&result).Error
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleStrainFavorite(ctx context.Context, id int) (*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	strain, err := utils.FetchModel[GeneticStrain](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	toggled := !utils.DereferencePtr(strain.Favorite)
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&strain).Update("Favorite", toggled).Error; err != nil {
		return nil, err
	}
	strain.Favorite = &toggled
	return strain, nil
}

func SetStrainPosition(ctx context.Context, id int, position int) (*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	strain, err := utils.FetchModel[GeneticStrain](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&strain).Update("Position", position).Error; err != nil {
		return nil, err
	}
	strain.Position = position
	return strain, nil
}

func GetStrain(ctx context.Context, id int) (*GeneticStrain, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	return utils.FetchModel[GeneticStrain](ctx, userId, id)
}

func GetStrains(ctx context.Context, name *string) ([]*GeneticStrain, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("LOWER(name) LIKE LOWER(?)", "%"+*name+"%")
	}
	var strains []*GeneticStrain
	err := dbCtx.Order("position ASC, name ASC").Find(&strains).Error
	if err != nil {
		return nil, err
	}
	return strains, nil
}

// FindStrainByNameFold is the case-insensitive lookup used by merge/import
// and the legacy-seed migration. Runs inside the caller's transaction.
func FindStrainByNameFold(tx *gorm.DB, userId string, name string) (*GeneticStrain, error) {
	var strain GeneticStrain
	err := tx.Where("user_id = ? AND LOWER(name) = LOWER(?)", userId, name).
		Take(&strain).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &strain, nil
}
