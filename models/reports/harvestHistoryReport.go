package reports

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/shopspring/decimal"
)

type HarvestHistoryResponse struct {
	CicloId        int             `json:"ciclo_id"`
	CicloName      string          `json:"ciclo_name"`
	SalaName       string          `json:"sala_name"`
	PrimaryStrain  string          `json:"primary_strain"`
	PlantCount     int64           `json:"plant_count"`
	DryWeightGrams decimal.Decimal `json:"dry_weight_grams"`
	FloraDays      int             `json:"flora_days"`
	DryingDays     int             `json:"drying_days"`
	FinalizedAt    *time.Time      `json:"finalized_at"`
}

// GetHarvestHistoryReport lists every finalized cycle newest first. The
// primary strain is the first allocation row, same as the curing jar label.
func GetHarvestHistoryReport(ctx context.Context) ([]*HarvestHistoryResponse, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	started := time.Now()

	sql := `
SELECT
    c.id AS ciclo_id,
    c.name AS ciclo_name,
    COALESCE(s.name, '') AS sala_name,
    COALESCE((
        SELECT cg.name FROM ciclo_genetics cg
        WHERE cg.ciclo_id = c.id
        ORDER BY cg.id LIMIT 1
    ), '') AS primary_strain,
    COALESCE((
        SELECT SUM(cg.quantity) FROM ciclo_genetics cg
        WHERE cg.ciclo_id = c.id
    ), 0) AS plant_count,
    c.dry_weight_grams,
    c.flora_days,
    c.drying_days,
    c.finalized_at
FROM ciclos c
    LEFT JOIN salas s ON s.id = c.sala_id
WHERE c.user_id = @userId AND c.state = 'FINALIZED'
ORDER BY c.finalized_at DESC, c.id DESC;
`
	var results []*HarvestHistoryResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"userId": userId,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}

	logSlowReport(ctx, "harvestHistory", started, map[string]any{"rows": len(results)})
	return results, nil
}

type StrainCommitmentResponse struct {
	StrainId       int    `json:"strain_id"`
	StrainName     string `json:"strain_name"`
	CloneStock     int64  `json:"clone_stock"`
	SeedStock      int64  `json:"seed_stock"`
	CommittedCount int64  `json:"committed_count"`
	HarvestCount   int64  `json:"harvest_count"`
}

// GetStrainCommitmentReport shows, per catalog strain, the stock still on the
// shelf next to the plants currently committed to active cycles. Stock was
// already debited at allocation time so the two columns never double count.
func GetStrainCommitmentReport(ctx context.Context) ([]*StrainCommitmentResponse, error) {

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return nil, errors.New("user id is required")
	}
	started := time.Now()

	sql := `
SELECT
    gs.id AS strain_id,
    gs.name AS strain_name,
    gs.clone_stock,
    gs.seed_stock,
    COALESCE(SUM(CASE WHEN c.state IN ('ACTIVE', 'DRYING') THEN cg.quantity ELSE 0 END), 0) AS committed_count,
    COALESCE(COUNT(DISTINCT CASE WHEN c.state = 'FINALIZED' THEN c.id END), 0) AS harvest_count
FROM genetic_strains gs
    LEFT JOIN ciclo_genetics cg ON cg.strain_id = gs.id
    LEFT JOIN ciclos c ON c.id = cg.ciclo_id AND c.user_id = @userId
WHERE gs.user_id = @userId
GROUP BY gs.id, gs.name, gs.clone_stock, gs.seed_stock
ORDER BY gs.position, gs.name;
`
	var results []*StrainCommitmentResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"userId": userId,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}

	logSlowReport(ctx, "strainCommitment", started, map[string]any{"rows": len(results)})
	return results, nil
}
