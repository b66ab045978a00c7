// logcount-reconcile recomputes each cycle's denormalized log summary
// (log_count, last_log_type, last_log_at) from the log_entries table. The
// live counter is advisory: inserts bump it, deletions do not, so it drifts
// upward over time. Run this whenever exact counts matter.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/logcount-reconcile [-user-id <uuid>] [-dry-run]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
)

type summaryRow struct {
	CicloId   int        `gorm:"column:ciclo_id"`
	LogCount  int        `gorm:"column:log_count"`
	LastType  *string    `gorm:"column:last_type"`
	LastLogAt *time.Time `gorm:"column:last_log_at"`
}

func main() {
	userID := flag.String("user-id", "", "Optional: reconcile only one user (uuid string). If empty, reconciles all users.")
	dryRun := flag.Bool("dry-run", false, "Report differences without writing.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx = utils.SetUserNameInContext(ctx, "LogCountReconcile")
	ctx = utils.SetIsAdminInContext(ctx, true)
	ctx = utils.SetSkipUserScopeInContext(ctx, true)

	var ciclos []models.Ciclo
	query := db.WithContext(ctx).Model(&models.Ciclo{}).
		Select("id", "user_id", "log_count", "last_log_type", "last_log_at")
	if strings.TrimSpace(*userID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*userID))
	}
	if err := query.Find(&ciclos).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list ciclos: %v\n", err)
		os.Exit(1)
	}
	if len(ciclos) == 0 {
		fmt.Println("no ciclos found")
		return
	}

	cicloIds := make([]int, 0, len(ciclos))
	for _, ciclo := range ciclos {
		cicloIds = append(cicloIds, ciclo.ID)
	}

	// derive the true summary per cycle; the correlated subqueries pick the
	// newest entry's type and timestamp
	sql := `
SELECT
    le.ciclo_id,
    COUNT(*) AS log_count,
    (SELECT l2.type FROM log_entries l2
       WHERE l2.ciclo_id = le.ciclo_id
       ORDER BY l2.date DESC, l2.id DESC LIMIT 1) AS last_type,
    (SELECT l3.date FROM log_entries l3
       WHERE l3.ciclo_id = le.ciclo_id
       ORDER BY l3.date DESC, l3.id DESC LIMIT 1) AS last_log_at
FROM log_entries le
WHERE le.ciclo_id IN ?
GROUP BY le.ciclo_id
`
	var rows []summaryRow
	if err := db.WithContext(ctx).Raw(sql, cicloIds).Scan(&rows).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to summarize log entries: %v\n", err)
		os.Exit(1)
	}

	summaries := make(map[int]summaryRow, len(rows))
	for _, row := range rows {
		summaries[row.CicloId] = row
	}

	fixed := 0
	for _, ciclo := range ciclos {
		summary := summaries[ciclo.ID]

		currentType := ""
		if ciclo.LastLogType != nil {
			currentType = string(*ciclo.LastLogType)
		}
		wantType := ""
		if summary.LastType != nil {
			wantType = *summary.LastType
		}

		if ciclo.LogCount == summary.LogCount && currentType == wantType {
			continue
		}

		fmt.Printf("ciclo %d: log_count %d -> %d, last_log_type %q -> %q\n",
			ciclo.ID, ciclo.LogCount, summary.LogCount, currentType, wantType)
		if *dryRun {
			fixed++
			continue
		}

		updates := map[string]interface{}{
			"log_count":     summary.LogCount,
			"last_log_type": summary.LastType,
			"last_log_at":   summary.LastLogAt,
		}
		err := db.WithContext(ctx).Model(&models.Ciclo{}).
			Where("id = ?", ciclo.ID).
			Updates(updates).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to update ciclo %d: %v\n", ciclo.ID, err)
			os.Exit(1)
		}
		fixed++
	}

	if *dryRun {
		fmt.Printf("dry-run: %d of %d ciclos need reconciling\n", fixed, len(ciclos))
		return
	}
	fmt.Printf("reconciled %d of %d ciclos\n", fixed, len(ciclos))
}
