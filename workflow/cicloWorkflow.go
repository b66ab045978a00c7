package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
)

// CreateCiclo validates the input, expands tracked allocations, debits the
// catalog per (strain, source) bucket and inserts the cycle. All catalog
// debits, the cycle insert and any low-stock notifications commit as one
// transaction: a failed debit leaves no cycle, a failed insert restores the
// stock.
func CreateCiclo(ctx context.Context, input *models.NewCiclo) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	if err := input.Validate(ctx, userId); err != nil {
		return nil, err
	}

	names, err := strainNames(ctx, userId, input.Genetics)
	if err != nil {
		return nil, err
	}

	entries := ExpandAllocations(input.Genetics, names)
	isPhenohunt := HasTrackedIndividuals(entries)
	now := time.Now().UTC()

	ciclo := models.Ciclo{
		UserId:              userId,
		SalaId:              input.SalaId,
		Name:                input.Name,
		Phase:               input.Phase,
		State:               models.CicloStateActive,
		CultivationType:     input.CultivationType,
		CultivationDetails:  input.CultivationDetails,
		VegetativeStartDate: input.VegetativeStartDate,
		FloweringStartDate:  input.FloweringStartDate,
		Notes:               input.Notes,
		Genetics:            entries,
		IsPhenohunt:         &isPhenohunt,
	}

	if input.Phase == models.CicloPhaseFlowering {
		if ciclo.FloweringStartDate == nil {
			ciclo.FloweringStartDate = &now
		}
		ciclo.FloweringWeeks = models.StandardFloweringWeeks()
	} else {
		ciclo.VegetativeWeeks = models.VegetativeWeeks(input.VegetativeStartDate, now)
	}

	db := config.GetDB()
	tx := db.Begin()

	lowStock := false
	for key, qty := range TotalsByBucket(entries) {
		strain, err := DebitStrainStock(tx, logger, userId, key.StrainId, key.Source, qty)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "CreateCiclo", "DebitStrainStock", key, err)
			return nil, err
		}
		remaining := strain.CloneStock
		if key.Source == models.StockSourceSeed {
			remaining = strain.SeedStock
		}
		if remaining == 0 {
			lowStock = true
			message := fmt.Sprintf("Stock depleted for %s (%s)", strain.Name, key.Source)
			if err := models.CreateNotificationTx(tx, userId, models.NotificationKindLowStock, message, "/catalog"); err != nil {
				tx.Rollback()
				config.LogError(logger, "cicloWorkflow.go", "CreateCiclo", "CreateNotificationTx", key, err)
				return nil, err
			}
		}
	}

	if err := tx.WithContext(ctx).Create(&ciclo).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "CreateCiclo", "Create ciclo", ciclo.Name, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	if lowStock {
		models.PublishCollectionEvent(ctx, models.CollectionNotifications)
	}
	return &ciclo, nil
}

// UpdateCiclo merges the editable fields into the cycle. Genetics are never
// re-diffed here; stock only moves through UpdateCicloGenetics. Moving
// vegetative -> flowering regenerates the flowering schedule from the fixed
// template and defaults the flowering start date to today.
func UpdateCiclo(ctx context.Context, id int, input *models.UpdateCicloInput) (*models.Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
	if err != nil {
		return nil, err
	}
	if ciclo.State == models.CicloStateFinalized {
		return nil, errors.New("ciclo is finalized")
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, errors.New("name is required")
		}
		updates["Name"] = *input.Name
	}
	if input.SalaId != nil {
		if err := utils.ValidateResourceId[models.Sala](ctx, userId, *input.SalaId); err != nil {
			return nil, errors.New("sala not found")
		}
		updates["SalaId"] = *input.SalaId
	}
	if input.CultivationType != nil {
		if !input.CultivationType.Valid() {
			return nil, errors.New("invalid cultivation type")
		}
		updates["CultivationType"] = *input.CultivationType
	}
	if input.CultivationDetails != nil {
		updates["CultivationDetails"] = *input.CultivationDetails
	}
	if input.VegetativeStartDate != nil {
		updates["VegetativeStartDate"] = *input.VegetativeStartDate
	}
	if input.FloweringStartDate != nil {
		updates["FloweringStartDate"] = *input.FloweringStartDate
	}
	if input.Notes != nil {
		updates["Notes"] = *input.Notes
	}

	if input.Phase != nil && *input.Phase != ciclo.Phase {
		if !input.Phase.Valid() {
			return nil, errors.New("invalid phase")
		}
		updates["Phase"] = *input.Phase
		if *input.Phase == models.CicloPhaseFlowering {
			updates["FloweringWeeks"] = models.StandardFloweringWeeks()
			if ciclo.FloweringStartDate == nil && input.FloweringStartDate == nil {
				now := time.Now().UTC()
				updates["FloweringStartDate"] = now
			}
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&ciclo).Updates(updates).Error; err != nil {
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// UpdateCicloGenetics replaces a cycle's allocation set, netting the stock
// movement to a single signed delta per (strain, source) bucket: the full
// original allocation is credited back and the new one debited in one
// computation, so a strain present in both sets moves stock only by the
// difference. Deltas and the allocation replacement commit atomically.
func UpdateCicloGenetics(ctx context.Context, cicloId int, allocations []models.NewGeneticAllocation) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateActive {
		return nil, errors.New("genetics can only be changed on an active ciclo")
	}
	if len(allocations) == 0 {
		return nil, errors.New("at least one genetic allocation is required")
	}

	strainIds := make([]int, 0, len(allocations))
	for _, allocation := range allocations {
		if allocation.Quantity <= 0 {
			return nil, errors.New("allocation quantity must be positive")
		}
		if !allocation.Source.Valid() {
			return nil, errors.New("invalid allocation source")
		}
		strainIds = append(strainIds, allocation.StrainId)
	}
	if err := utils.ValidateResourcesId[models.GeneticStrain, int](ctx, userId, strainIds); err != nil {
		return nil, errors.New("strain not found")
	}

	names, err := strainNames(ctx, userId, allocations)
	if err != nil {
		return nil, err
	}

	newEntries := ExpandAllocations(allocations, names)
	deltas := ComputeAllocationDeltas(ciclo.Genetics, newEntries)
	isPhenohunt := HasTrackedIndividuals(newEntries)

	db := config.GetDB()
	tx := db.Begin()

	for key, delta := range deltas {
		if delta > 0 {
			if _, err := DebitStrainStock(tx, logger, userId, key.StrainId, key.Source, delta); err != nil {
				tx.Rollback()
				config.LogError(logger, "cicloWorkflow.go", "UpdateCicloGenetics", "DebitStrainStock", key, err)
				return nil, err
			}
		} else {
			if _, err := CreditStrainStock(tx, logger, userId, key.StrainId, key.Source, -delta); err != nil {
				tx.Rollback()
				config.LogError(logger, "cicloWorkflow.go", "UpdateCicloGenetics", "CreditStrainStock", key, err)
				return nil, err
			}
		}
	}

	// replace the allocation rows and bump the optimistic version
	if err := tx.WithContext(ctx).Where("ciclo_id = ?", ciclo.ID).Delete(&models.CicloGenetic{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "UpdateCicloGenetics", "Delete old allocations", ciclo.ID, err)
		return nil, err
	}
	for i := range newEntries {
		newEntries[i].CicloId = ciclo.ID
	}
	if len(newEntries) > 0 {
		if err := tx.WithContext(ctx).Create(&newEntries).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "UpdateCicloGenetics", "Create new allocations", ciclo.ID, err)
			return nil, err
		}
	}
	result := tx.WithContext(ctx).Model(&models.Ciclo{}).
		Where("id = ? AND genetics_version = ?", ciclo.ID, ciclo.GeneticsVersion).
		Updates(map[string]interface{}{
			"is_phenohunt":     isPhenohunt,
			"genetics_version": ciclo.GeneticsVersion + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "UpdateCicloGenetics", "Update ciclo flags", ciclo.ID, result.Error)
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// another writer changed the genetics since our read; the deltas were
		// computed against a stale snapshot, so nothing may commit
		tx.Rollback()
		return nil, utils.ErrorConcurrentUpdate
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	return utils.FetchModel[models.Ciclo](ctx, userId, cicloId, "Genetics")
}

// AdvanceToFlowering flips an active vegetative cycle into flowering: stamps
// the flowering start date, installs the fixed 9-week template and clears
// the vegetative schedule. Irreversible; the client confirms before calling.
func AdvanceToFlowering(ctx context.Context, id int) (*models.Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateActive {
		return nil, errors.New("ciclo is not active")
	}
	if ciclo.Phase != models.CicloPhaseVegetative {
		return nil, errors.New("ciclo is already flowering")
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&ciclo).Updates(map[string]interface{}{
		"Phase":              models.CicloPhaseFlowering,
		"FloweringStartDate": now,
		"FloweringWeeks":     models.StandardFloweringWeeks(),
		"VegetativeWeeks":    models.WeekList{},
	}).Error
	if err != nil {
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// BeginDrying moves an active cycle into the drying state and stamps the
// drying start, from which finalize later derives dryingDays.
func BeginDrying(ctx context.Context, id int) (*models.Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateActive {
		return nil, errors.New("ciclo is not active")
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&ciclo).Updates(map[string]interface{}{
		"State":           models.CicloStateDrying,
		"DryingStartedAt": now,
	}).Error
	if err != nil {
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// FinalizeCiclo is terminal and only reachable from drying. It stamps the
// harvest fields, computes flora/drying day counts, creates the curing jar,
// applies any favorite flags the user set during harvest review and emits
// the harvest notification; all of it one transaction.
func FinalizeCiclo(ctx context.Context, id int, input *models.FinalizeCicloInput) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateDrying {
		return nil, errors.New("ciclo must be drying before finalize")
	}

	now := time.Now().UTC()
	dryWeight := utils.ParseDecimal(input.DryWeightGrams)

	dryingDays := 0
	if ciclo.DryingStartedAt != nil {
		dryingDays = models.DaysBetween(*ciclo.DryingStartedAt, now)
	}
	floraDays := utils.DereferencePtr(models.DaysSince(ciclo.FloweringStartDate, now))

	harvestName := input.HarvestName
	if harvestName == "" {
		harvestName = ciclo.Name
	}
	primaryStrain := ""
	if len(ciclo.Genetics) > 0 {
		primaryStrain = ciclo.Genetics[0].Name
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).Model(&models.Ciclo{}).Where("id = ? AND user_id = ?", ciclo.ID, userId).
		Updates(map[string]interface{}{
			"state":            models.CicloStateFinalized,
			"finalized_at":     now,
			"dry_weight_grams": dryWeight,
			"flora_days":       floraDays,
			"drying_days":      dryingDays,
			"tags":             input.Tags,
		}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "FinalizeCiclo", "Update ciclo", ciclo.ID, err)
		return nil, err
	}

	jar := models.CuringJar{
		UserId:            userId,
		HarvestName:       harvestName,
		PrimaryStrainName: primaryStrain,
		JarredDate:        now,
		SourceCicloId:     ciclo.ID,
	}
	if err := tx.WithContext(ctx).Create(&jar).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "FinalizeCiclo", "Create curing jar", ciclo.ID, err)
		return nil, err
	}

	if len(input.FavoriteStrainIds) > 0 {
		err = tx.WithContext(ctx).Model(&models.GeneticStrain{}).
			Where("user_id = ? AND id IN ?", userId, utils.UniqueSlice(input.FavoriteStrainIds)).
			UpdateColumn("favorite", true).Error
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "FinalizeCiclo", "Update favorites", input.FavoriteStrainIds, err)
			return nil, err
		}
	}

	message := fmt.Sprintf("Harvest complete: %s (%s g dry)", harvestName, dryWeight.String())
	if err := models.CreateNotificationTx(tx, userId, models.NotificationKindHarvestComplete, message, "/jars"); err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "FinalizeCiclo", "CreateNotificationTx", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	models.PublishCollectionEvent(ctx, models.CollectionCuringJars)
	models.PublishCollectionEvent(ctx, models.CollectionNotifications)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// ReconcileCicloWeeks is the idempotent self-healing step run on every
// detail-view open: the vegetative schedule is re-derived from its start
// date and persisted only when it differs from the stored value, and legacy
// DRYING week entries are stripped from the flowering schedule. Derivation
// is deterministic, so a second run is always a no-op.
func ReconcileCicloWeeks(ctx context.Context, ciclo *models.Ciclo) (*models.Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	updates := map[string]interface{}{}

	if ciclo.Phase == models.CicloPhaseVegetative && ciclo.State == models.CicloStateActive {
		recomputed := models.VegetativeWeeks(ciclo.VegetativeStartDate, time.Now().UTC())
		if !recomputed.Equal(ciclo.VegetativeWeeks) {
			updates["VegetativeWeeks"] = recomputed
			ciclo.VegetativeWeeks = recomputed
		}
	}

	stripped := make(models.WeekList, 0, len(ciclo.FloweringWeeks))
	for _, week := range ciclo.FloweringWeeks {
		if week.PhaseName == models.WeekPhaseDrying {
			continue
		}
		stripped = append(stripped, week)
	}
	if len(stripped) != len(ciclo.FloweringWeeks) {
		updates["FloweringWeeks"] = stripped
		ciclo.FloweringWeeks = stripped
	}

	if len(updates) == 0 {
		return ciclo, nil
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Model(&models.Ciclo{}).
		Where("id = ? AND user_id = ?", ciclo.ID, userId).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}
	return ciclo, nil
}

// AddCicloWeek appends one trailing week to the active phase's schedule.
func AddCicloWeek(ctx context.Context, id int) (*models.Ciclo, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateActive {
		return nil, errors.New("ciclo is not active")
	}

	weeks := ciclo.ActiveWeeks()
	phaseName := models.WeekPhaseVegetative
	column := "VegetativeWeeks"
	if ciclo.Phase == models.CicloPhaseFlowering {
		phaseName = models.WeekPhaseFlush
		column = "FloweringWeeks"
	}
	if len(weeks) > 0 {
		phaseName = weeks[len(weeks)-1].PhaseName
	}
	weeks = append(weeks, models.CicloWeek{WeekNumber: len(weeks) + 1, PhaseName: phaseName})

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&ciclo).Update(column, weeks).Error; err != nil {
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// RemoveLastCicloWeek drops the trailing week of the active schedule and
// deletes that week's log entries in the same transaction. Only the
// highest-numbered week may go; the client disables the action elsewhere.
func RemoveLastCicloWeek(ctx context.Context, id int) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if ciclo.State != models.CicloStateActive {
		return nil, errors.New("ciclo is not active")
	}

	weeks := ciclo.ActiveWeeks()
	if len(weeks) == 0 {
		return nil, errors.New("no weeks to remove")
	}
	removed := weeks[len(weeks)-1]
	weeks = weeks[:len(weeks)-1]

	column := "VegetativeWeeks"
	if ciclo.Phase == models.CicloPhaseFlowering {
		column = "FloweringWeeks"
	}

	db := config.GetDB()
	tx := db.Begin()

	err = tx.WithContext(ctx).
		Where("user_id = ? AND ciclo_id = ? AND week = ?", userId, ciclo.ID, removed.WeekNumber).
		Delete(&models.LogEntry{}).Error
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "RemoveLastCicloWeek", "Delete log entries", removed, err)
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&ciclo).Update(column, weeks).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "RemoveLastCicloWeek", "Update weeks", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
}

// DeleteCiclo removes the cycle with its allocations and log entries in one
// transaction. Debited stock is NOT restored: deletion is not "never
// happened", consumed plants stay consumed.
func DeleteCiclo(ctx context.Context, id int) (*models.Ciclo, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	ciclo, err := utils.FetchModel[models.Ciclo](ctx, userId, id, "Genetics")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	if err := tx.WithContext(ctx).Where("user_id = ? AND ciclo_id = ?", userId, ciclo.ID).Delete(&models.LogEntry{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "DeleteCiclo", "Delete log entries", ciclo.ID, err)
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("ciclo_id = ?", ciclo.ID).Delete(&models.CicloGenetic{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "DeleteCiclo", "Delete allocations", ciclo.ID, err)
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&models.Ciclo{}, ciclo.ID).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "DeleteCiclo", "Delete ciclo", ciclo.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return ciclo, nil
}

// DeleteSala removes the room and every cycle in it (with their logs and
// allocations) atomically. Stock is not restored here either.
func DeleteSala(ctx context.Context, id int) (*models.Sala, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	sala, err := utils.FetchModel[models.Sala](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var cicloIds []int
	err = db.WithContext(ctx).Model(&models.Ciclo{}).
		Where("user_id = ? AND sala_id = ?", userId, sala.ID).
		Pluck("id", &cicloIds).Error
	if err != nil {
		return nil, err
	}

	tx := db.Begin()

	if len(cicloIds) > 0 {
		if err := tx.WithContext(ctx).Where("user_id = ? AND ciclo_id IN ?", userId, cicloIds).Delete(&models.LogEntry{}).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "DeleteSala", "Delete log entries", cicloIds, err)
			return nil, err
		}
		if err := tx.WithContext(ctx).Where("ciclo_id IN ?", cicloIds).Delete(&models.CicloGenetic{}).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "DeleteSala", "Delete allocations", cicloIds, err)
			return nil, err
		}
		if err := tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&models.Ciclo{}, cicloIds).Error; err != nil {
			tx.Rollback()
			config.LogError(logger, "cicloWorkflow.go", "DeleteSala", "Delete ciclos", cicloIds, err)
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Where("user_id = ?", userId).Delete(&models.Sala{}, sala.ID).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "cicloWorkflow.go", "DeleteSala", "Delete sala", sala.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionSalas)
	models.PublishCollectionEvent(ctx, models.CollectionCiclos)
	return sala, nil
}

// strainNames snapshots catalog names for the allocation inputs.
func strainNames(ctx context.Context, userId string, allocations []models.NewGeneticAllocation) (map[int]string, error) {
	ids := make([]int, 0, len(allocations))
	for _, allocation := range allocations {
		ids = append(ids, allocation.StrainId)
	}

	var strains []models.GeneticStrain
	db := config.GetDB()
	err := db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userId, utils.UniqueSlice(ids)).
		Find(&strains).Error
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(strains))
	for _, strain := range strains {
		names[strain.ID] = strain.Name
	}
	return names, nil
}
