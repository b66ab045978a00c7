package middlewares

import (
	"context"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type cicloReader struct {
	db *gorm.DB
}

func (r *cicloReader) getCiclos(ctx context.Context, ids []int) []*dataloader.Result[*models.Ciclo] {
	var results []models.Ciclo
	err := r.db.WithContext(ctx).Preload("Genetics").Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Ciclo](len(ids), err)
	}

	return generateLoaderResults(results, ids)
}

func GetCiclos(ctx context.Context, ids []int) ([]*models.Ciclo, []error) {
	loaders := For(ctx)
	return loaders.CicloLoader.LoadMany(ctx, ids)()
}
