package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
)

// CuringJar is the post-harvest inventory record created exactly once when a
// cycle is finalized. Consumed (deleted) independently of the cycle.
type CuringJar struct {
	ID                int       `gorm:"primary_key" json:"id"`
	UserId            string    `gorm:"index;size:36;not null" json:"user_id"`
	HarvestName       string    `gorm:"size:100;not null" json:"harvest_name"`
	PrimaryStrainName string    `gorm:"size:100" json:"primary_strain_name"`
	JarredDate        time.Time `gorm:"not null" json:"jarred_date"`
	SourceCicloId     int       `gorm:"uniqueIndex;not null" json:"source_ciclo_id"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func GetCuringJars(ctx context.Context) ([]*CuringJar, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	var jars []*CuringJar
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("jarred_date DESC").
		Find(&jars).Error
	if err != nil {
		return nil, err
	}
	return jars, nil
}

func DeleteCuringJar(ctx context.Context, id int) (*CuringJar, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	result, err := utils.FetchModel[CuringJar](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	PublishCollectionEvent(ctx, CollectionCuringJars)
	return result, nil
}
