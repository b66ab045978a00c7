package workflow

import (
	"context"
	"errors"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"gorm.io/gorm"
)

// AdjustStrainStock applies a signed manual correction to one stock bucket.
// Negative adjustments go through the guarded debit, so a correction can
// never drive the bucket below zero.
func AdjustStrainStock(ctx context.Context, strainId int, source models.StockSource, delta int) (*models.GeneticStrain, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if delta == 0 {
		return nil, errors.New("adjustment delta cannot be zero")
	}
	if !source.Valid() {
		return nil, errors.New("invalid stock source")
	}

	db := config.GetDB()
	tx := db.Begin()

	var strain *models.GeneticStrain
	var err error
	if delta > 0 {
		strain, err = CreditStrainStock(tx, logger, userId, strainId, source, delta)
	} else {
		strain, err = DebitStrainStock(tx, logger, userId, strainId, source, -delta)
	}
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "geneticsWorkflow.go", "AdjustStrainStock", "apply delta", strainId, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	return strain, nil
}

// MergeStrainTx inserts the strain or, when a catalog entry with the same
// name already exists (case-insensitive), folds the input into it: stock
// quantities add up and empty descriptive fields are filled in. Existing
// non-empty fields always win. Runs inside the caller's transaction; the
// xlsx import and the legacy-seed migration both go through here.
func MergeStrainTx(tx *gorm.DB, userId string, input *models.NewGeneticStrain) (*models.GeneticStrain, error) {

	existing, err := models.FindStrainByNameFold(tx, userId, input.Name)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		favorite := input.Favorite
		if favorite == nil {
			favorite = utils.NewFalse()
		}
		strain := models.GeneticStrain{
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
		if err := tx.Create(&strain).Error; err != nil {
			return nil, err
		}
		return &strain, nil
	}

	existing.CloneStock += input.CloneStock
	existing.SeedStock += input.SeedStock
	if existing.Bank == "" {
		existing.Bank = input.Bank
	}
	if existing.Parents == "" {
		existing.Parents = input.Parents
	}
	if existing.Owner == "" {
		existing.Owner = input.Owner
	}
	if err := tx.Save(existing).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

// CreateOrMergeStrain is the public entry over MergeStrainTx with its own
// transaction.
func CreateOrMergeStrain(ctx context.Context, input *models.NewGeneticStrain) (*models.GeneticStrain, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if input.Name == "" {
		return nil, errors.New("name is required")
	}
	if input.CloneStock < 0 || input.SeedStock < 0 {
		return nil, errors.New("stock cannot be negative")
	}

	db := config.GetDB()
	tx := db.Begin()

	strain, err := MergeStrainTx(tx, userId, input)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "geneticsWorkflow.go", "CreateOrMergeStrain", "MergeStrainTx", input.Name, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	return strain, nil
}

// PromoteStrain graduates a tracked phenotype into a first-class catalog
// strain. The new entry starts with the mother cutting (one clone), is
// flagged favorite and inherits bank and lineage from the source strain.
// The allocation is marked promoted so it cannot graduate twice, and the
// cycle's genetics version is checked so a concurrent evaluation edit
// cannot interleave. New strain, allocation flag and version bump commit
// as one transaction.
func PromoteStrain(ctx context.Context, cicloId int, phenoId string, newName string) (*models.GeneticStrain, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	if newName == "" {
		return nil, errors.New("name is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
	if err != nil {
		return nil, err
	}

	var allocation *models.CicloGenetic
	for i := range ciclo.Genetics {
		if ciclo.Genetics[i].PhenoId == phenoId {
			allocation = &ciclo.Genetics[i]
			break
		}
	}
	if allocation == nil || !allocation.IsTracked() {
		return nil, errors.New("phenotype not found")
	}
	if utils.DereferencePtr(allocation.Promoted) {
		return nil, errors.New("phenotype already promoted")
	}

	if err := utils.ValidateUniqueFold[models.GeneticStrain](ctx, userId, "name", newName, 0); err != nil {
		return nil, err
	}

	source, err := utils.FetchModel[models.GeneticStrain](ctx, userId, allocation.StrainId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	strain := models.GeneticStrain{
		UserId:     userId,
		Name:       newName,
		Bank:       source.Bank,
		Parents:    source.Name,
		Owner:      source.Owner,
		CloneStock: 1,
		SeedStock:  0,
		Favorite:   utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&strain).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "geneticsWorkflow.go", "PromoteStrain", "Create strain", newName, err)
		return nil, err
	}

	err = tx.WithContext(ctx).Model(&models.CicloGenetic{}).
		Where("id = ? AND ciclo_id = ?", allocation.ID, ciclo.ID).
		Updates(map[string]interface{}{
			"promoted":           true,
			"promoted_strain_id": strain.ID,
			"decision":           models.PhenoDecisionKeep,
		}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "geneticsWorkflow.go", "PromoteStrain", "Update allocation", allocation.ID, err)
		return nil, err
	}

	if err := bumpGeneticsVersion(tx, ctx, ciclo); err != nil {
		tx.Rollback()
		config.LogError(logger, "geneticsWorkflow.go", "PromoteStrain", "bumpGeneticsVersion", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return &strain, nil
}
