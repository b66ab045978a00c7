package workflow

import (
	"context"
	"errors"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"gorm.io/gorm"
)

func findTrackedAllocation(ciclo *models.Ciclo, phenoId string) (*models.CicloGenetic, error) {
	for i := range ciclo.Genetics {
		if ciclo.Genetics[i].PhenoId == phenoId {
			if !ciclo.Genetics[i].IsTracked() {
				break
			}
			return &ciclo.Genetics[i], nil
		}
	}
	return nil, errors.New("phenotype not found")
}

// bumpGeneticsVersion advances the cycle's concurrency token, failing with
// ErrorConcurrentUpdate when another writer got there first. Every
// read-modify-write over the genetics list goes through this.
func bumpGeneticsVersion(tx *gorm.DB, ctx context.Context, ciclo *models.Ciclo) error {
	result := tx.WithContext(ctx).Model(&models.Ciclo{}).
		Where("id = ? AND genetics_version = ?", ciclo.ID, ciclo.GeneticsVersion).
		UpdateColumn("genetics_version", ciclo.GeneticsVersion+1)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorConcurrentUpdate
	}
	return nil
}

// SetPhenoDecision records keep/discard for one tracked individual. Setting
// the decision it already has toggles it back to evaluating, which is how
// the client implements "undo" with a single endpoint.
func SetPhenoDecision(ctx context.Context, cicloId int, phenoId string, decision models.PhenoDecision) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if decision != models.PhenoDecisionKeep && decision != models.PhenoDecisionDiscard {
		return nil, errors.New("decision must be KEEP or DISCARD")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
	if err != nil {
		return nil, err
	}

	allocation, err := findTrackedAllocation(ciclo, phenoId)
	if err != nil {
		return nil, err
	}
	if utils.DereferencePtr(allocation.Promoted) {
		return nil, errors.New("phenotype already promoted")
	}

	next := decision
	if allocation.Decision == decision {
		next = models.PhenoDecisionEvaluating
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&models.CicloGenetic{}).
		Where("id = ? AND ciclo_id = ?", allocation.ID, ciclo.ID).
		Update("decision", next).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "phenotypeWorkflow.go", "SetPhenoDecision", "Update decision", phenoId, err)
		return nil, err
	}

	if err := bumpGeneticsVersion(tx, ctx, ciclo); err != nil {
		tx.Rollback()
		config.LogError(logger, "phenotypeWorkflow.go", "SetPhenoDecision", "bumpGeneticsVersion", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
}

// PhenoEvaluationInput carries the free-form evaluation fields. Nil leaves
// the stored value untouched.
type PhenoEvaluationInput struct {
	Notes *string            `json:"notes"`
	Tags  *models.StringList `json:"tags"`
}

// UpdatePhenoEvaluation merges notes and tags into one tracked allocation.
func UpdatePhenoEvaluation(ctx context.Context, cicloId int, phenoId string, input *PhenoEvaluationInput) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
	if err != nil {
		return nil, err
	}

	allocation, err := findTrackedAllocation(ciclo, phenoId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Notes != nil {
		updates["evaluation_notes"] = *input.Notes
	}
	if input.Tags != nil {
		updates["evaluation_tags"] = *input.Tags
	}
	if len(updates) == 0 {
		return ciclo, nil
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&models.CicloGenetic{}).
		Where("id = ? AND ciclo_id = ?", allocation.ID, ciclo.ID).
		Updates(updates).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "phenotypeWorkflow.go", "UpdatePhenoEvaluation", "Update evaluation", phenoId, err)
		return nil, err
	}

	if err := bumpGeneticsVersion(tx, ctx, ciclo); err != nil {
		tx.Rollback()
		config.LogError(logger, "phenotypeWorkflow.go", "UpdatePhenoEvaluation", "bumpGeneticsVersion", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
}
