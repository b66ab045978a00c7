package workflow

import (
	"context"
	"errors"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"gorm.io/gorm"
)

// RunUserDataMigration folds the user's legacy seed-inventory rows into the
// unified catalog and stamps their data model version, all in one
// transaction. Seeds merge by case-insensitive name: an existing strain
// gains seed stock, an unknown name becomes a new catalog entry. The whole
// run is serialized per user behind a redis lock and gated on the stored
// version, so it runs exactly once per account no matter how many sessions
// race through login. A user with zero legacy rows still gets stamped.
func RunUserDataMigration(ctx context.Context) error {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	release, err := utils.UserLock(ctx, userId, "DataMigration", "migrationWorkflow.go", "RunUserDataMigration")
	if err != nil {
		return err
	}
	defer release()

	db := config.GetDB()

	var user models.User
	if err := db.WithContext(ctx).Where("id = ?", userId).Take(&user).Error; err != nil {
		return err
	}
	if user.DataModelVersion >= models.CurrentDataModelVersion {
		return nil
	}

	var seeds []models.LegacySeed
	if err := db.WithContext(ctx).Where("user_id = ?", userId).Find(&seeds).Error; err != nil {
		return err
	}

	tx := db.Begin()

	for _, seed := range seeds {
		input := models.NewGeneticStrain{
			Name:      seed.Name,
			Bank:      seed.Bank,
			Parents:   seed.Parents,
			SeedStock: seed.Quantity,
		}
		if _, err := MergeStrainTx(tx, userId, &input); err != nil {
			tx.Rollback()
			config.LogError(logger, "migrationWorkflow.go", "RunUserDataMigration", "MergeStrainTx", seed.Name, err)
			return err
		}
	}

	if len(seeds) > 0 {
		if err := tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&models.LegacySeed{}).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "migrationWorkflow.go", "RunUserDataMigration", "Delete legacy seeds", userId, err)
			return err
		}
	}

	err = tx.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userId).
		UpdateColumn("data_model_version", models.CurrentDataModelVersion).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "migrationWorkflow.go", "RunUserDataMigration", "stamp version", userId, err)
		return err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return err
	}

	logger.WithFields(map[string]interface{}{
		"userId":      userId,
		"seedsMerged": len(seeds),
	}).Info("legacy seed migration complete")

	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	return nil
}

// migrationPending is a cheap read used by login to decide whether to kick
// the migration at all before taking the lock.
func migrationPending(tx *gorm.DB, userId string) (bool, error) {
	var version int
	err := tx.Model(&models.User{}).Where("id = ?", userId).
		Pluck("data_model_version", &version).Error
	if err != nil {
		return false, err
	}
	return version < models.CurrentDataModelVersion, nil
}

// MaybeRunUserDataMigration checks the version stamp and runs the migration
// only when needed. Called after every successful login.
func MaybeRunUserDataMigration(ctx context.Context) error {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return errors.New("user id is required")
	}

	db := config.GetDB()
	pending, err := migrationPending(db.WithContext(ctx), userId)
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}
	return RunUserDataMigration(ctx)
}
