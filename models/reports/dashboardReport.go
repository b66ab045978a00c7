package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	ActiveCiclos    int64            `json:"active_ciclos"`
	VegetativeCount int64            `json:"vegetative_count"`
	FloweringCount  int64            `json:"flowering_count"`
	DryingCount     int64            `json:"drying_count"`
	PhenohuntCount  int64            `json:"phenohunt_count"`
	TotalCloneStock int64            `json:"total_clone_stock"`
	TotalSeedStock  int64            `json:"total_seed_stock"`
	CuringJarCount  int64            `json:"curing_jar_count"`
	HarvestByMonth  []HarvestByMonth `json:"harvest_by_month"`
	PlantsPerSala   []PlantsPerSala  `json:"plants_per_sala"`
}

type HarvestByMonth struct {
	Month          string          `json:"month"`
	HarvestCount   int64           `json:"harvest_count"`
	DryWeightGrams decimal.Decimal `json:"dry_weight_grams"`
}

type PlantsPerSala struct {
	SalaId     int    `json:"sala_id"`
	SalaName   string `json:"sala_name"`
	CicloCount int64  `json:"ciclo_count"`
	PlantCount int64  `json:"plant_count"`
}

// GetDashboardReport aggregates the home-screen numbers in a handful of
// grouped queries instead of loading every row.
func GetDashboardReport(ctx context.Context) (*DashboardResponse, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}

	cacheKey := fmt.Sprintf("report:dashboard:%s", userId)
	if reportCacheEnabled() {
		var cached DashboardResponse
		if found, err := cacheGet(cacheKey, &cached); err == nil && found {
			return &cached, nil
		}
	}
	started := time.Now()

	db := config.GetDB()
	var response DashboardResponse

	stateSql := `
SELECT
    COUNT(*) AS active_ciclos,
    SUM(CASE WHEN state = 'ACTIVE' AND phase = 'VEGETATIVE' THEN 1 ELSE 0 END) AS vegetative_count,
    SUM(CASE WHEN state = 'ACTIVE' AND phase = 'FLOWERING' THEN 1 ELSE 0 END) AS flowering_count,
    SUM(CASE WHEN state = 'DRYING' THEN 1 ELSE 0 END) AS drying_count,
    SUM(CASE WHEN is_phenohunt = 1 THEN 1 ELSE 0 END) AS phenohunt_count
FROM ciclos
WHERE user_id = @userId AND state <> 'FINALIZED';
`
	if err := db.WithContext(ctx).Raw(stateSql, map[string]interface{}{
		"userId": userId,
	}).Scan(&response).Error; err != nil {
		return nil, err
	}

	stockSql := `
SELECT
    COALESCE(SUM(clone_stock), 0) AS total_clone_stock,
    COALESCE(SUM(seed_stock), 0) AS total_seed_stock
FROM genetic_strains
WHERE user_id = @userId;
`
	if err := db.WithContext(ctx).Raw(stockSql, map[string]interface{}{
		"userId": userId,
	}).Scan(&response).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&models.CuringJar{}).
		Where("user_id = ?", userId).Count(&response.CuringJarCount).Error; err != nil {
		return nil, err
	}

	harvestSql := `
SELECT
    DATE_FORMAT(finalized_at, '%Y-%m') AS month,
    COUNT(*) AS harvest_count,
    COALESCE(SUM(dry_weight_grams), 0) AS dry_weight_grams
FROM ciclos
WHERE user_id = @userId
  AND state = 'FINALIZED'
  AND finalized_at >= DATE_SUB(CURDATE(), INTERVAL 12 MONTH)
GROUP BY DATE_FORMAT(finalized_at, '%Y-%m')
ORDER BY month;
`
	if err := db.WithContext(ctx).Raw(harvestSql, map[string]interface{}{
		"userId": userId,
	}).Scan(&response.HarvestByMonth).Error; err != nil {
		return nil, err
	}

	salaSql := `
SELECT
    s.id AS sala_id,
    s.name AS sala_name,
    COUNT(DISTINCT c.id) AS ciclo_count,
    COALESCE(SUM(cg.quantity), 0) AS plant_count
FROM salas s
    LEFT JOIN ciclos c ON c.sala_id = s.id AND c.state = 'ACTIVE'
    LEFT JOIN ciclo_genetics cg ON cg.ciclo_id = c.id
WHERE s.user_id = @userId
GROUP BY s.id, s.name
ORDER BY s.position, s.id;
`
	if err := db.WithContext(ctx).Raw(salaSql, map[string]interface{}{
		"userId": userId,
	}).Scan(&response.PlantsPerSala).Error; err != nil {
		return nil, err
	}

	logSlowReport(ctx, "dashboard", started, nil)
	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, &response, reportCacheTTL())
	}
	return &response, nil
}
