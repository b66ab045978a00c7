package middlewares

import (
	"context"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type salaReader struct {
	db *gorm.DB
}

func (r *salaReader) getSalas(ctx context.Context, ids []int) []*dataloader.Result[*models.Sala] {
	var results []models.Sala
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Sala](len(ids), err)
	}

	return generateLoaderResults(results, ids)
}

func GetSala(ctx context.Context, id int) (*models.Sala, error) {
	loaders := For(ctx)
	return loaders.SalaLoader.Load(ctx, id)()
}

func GetSalas(ctx context.Context, ids []int) ([]*models.Sala, []error) {
	loaders := For(ctx)
	return loaders.SalaLoader.LoadMany(ctx, ids)()
}
