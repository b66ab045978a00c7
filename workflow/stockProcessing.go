package workflow

import (
	"fmt"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// stockColumn maps an allocation source to its catalog stock column.
func stockColumn(source models.StockSource) string {
	if source == models.StockSourceSeed {
		return "seed_stock"
	}
	return "clone_stock"
}

// DebitStrainStock decrements one stock field inside the caller's
// transaction. With the strict guard (default) the UPDATE carries a
// `col >= qty` condition so a concurrent debit can never push stock below
// zero; zero rows affected means insufficient stock and the caller must roll
// back. Returns the strain as it stands after the debit.
func DebitStrainStock(tx *gorm.DB, logger *logrus.Logger, userId string, strainId int, source models.StockSource, qty int) (*models.GeneticStrain, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("debit qty must be positive, got %d", qty)
	}
	column := stockColumn(source)

	dbCtx := tx.Model(&models.GeneticStrain{}).
		Where("id = ? AND user_id = ?", strainId, userId)
	if config.StrictStockGuard() {
		dbCtx = dbCtx.Where(column+" >= ?", qty)
	}
	result := dbCtx.UpdateColumn(column, gorm.Expr(column+" - ?", qty))
	if result.Error != nil {
		config.LogError(logger, "stockProcessing.go", "DebitStrainStock", "UpdateColumn", strainId, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorInsufficientStock
	}

	return refreshSeedAvailability(tx, logger, userId, strainId, source)
}

// CreditStrainStock increments one stock field inside the caller's
// transaction. Used by the manage-genetics netting and manual adjustments.
func CreditStrainStock(tx *gorm.DB, logger *logrus.Logger, userId string, strainId int, source models.StockSource, qty int) (*models.GeneticStrain, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("credit qty must be positive, got %d", qty)
	}
	column := stockColumn(source)

	err := tx.Model(&models.GeneticStrain{}).
		Where("id = ? AND user_id = ?", strainId, userId).
		UpdateColumn(column, gorm.Expr(column+" + ?", qty)).Error
	if err != nil {
		config.LogError(logger, "stockProcessing.go", "CreditStrainStock", "UpdateColumn", strainId, err)
		return nil, err
	}

	return refreshSeedAvailability(tx, logger, userId, strainId, source)
}

// refreshSeedAvailability re-derives the cached is_seed_available flag after
// a raw column update (which bypasses model hooks) and reloads the row.
func refreshSeedAvailability(tx *gorm.DB, logger *logrus.Logger, userId string, strainId int, source models.StockSource) (*models.GeneticStrain, error) {
	if source == models.StockSourceSeed {
		err := tx.Model(&models.GeneticStrain{}).
			Where("id = ? AND user_id = ?", strainId, userId).
			UpdateColumn("is_seed_available", gorm.Expr("seed_stock > 0")).Error
		if err != nil {
			config.LogError(logger, "stockProcessing.go", "refreshSeedAvailability", "UpdateColumn", strainId, err)
			return nil, err
		}
	}

	var strain models.GeneticStrain
	err := tx.Where("id = ? AND user_id = ?", strainId, userId).Take(&strain).Error
	if err != nil {
		config.LogError(logger, "stockProcessing.go", "refreshSeedAvailability", "Reload strain", strainId, err)
		return nil, err
	}
	return &strain, nil
}
