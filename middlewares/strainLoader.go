package middlewares

import (
	"context"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type strainReader struct {
	db *gorm.DB
}

func (r *strainReader) getStrains(ctx context.Context, ids []int) []*dataloader.Result[*models.GeneticStrain] {
	var results []models.GeneticStrain
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.GeneticStrain](len(ids), err)
	}

	return generateLoaderResults(results, ids)
}

func GetStrains(ctx context.Context, ids []int) ([]*models.GeneticStrain, []error) {
	loaders := For(ctx)
	return loaders.StrainLoader.LoadMany(ctx, ids)()
}
