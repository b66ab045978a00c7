package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/models/reports"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/xuri/excelize/v2"
)

const importSheetName = "Sheet1"

// parseStockCell tolerates blank cells and surrounding whitespace; anything
// else must be a non-negative integer.
func parseStockCell(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid stock value %q", value)
	}
	return n, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ImportStrainsFromXlsx bulk-loads catalog strains from a spreadsheet with
// the columns Name, Bank, Parents, Clones, Seeds (header row required).
// Rows merge by case-insensitive name like every other catalog write, and
// the whole file imports in one transaction: a bad row aborts everything.
// Returns the number of rows processed.
func ImportStrainsFromXlsx(ctx context.Context, filename string, file io.Reader) (int, error) {
	logger := config.GetLogger()

	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return 0, errors.New("user id is required")
	}
	if file == nil {
		return 0, errors.New("nil file provided")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		return 0, errors.New("invalid file type: only .xlsx files are allowed")
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return 0, fmt.Errorf("unable to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(importSheetName)
	if err != nil {
		return 0, fmt.Errorf("unable to read sheet: %v", err)
	}
	if len(rows) < 2 {
		return 0, errors.New("spreadsheet has no data rows")
	}

	release, err := utils.UserLock(ctx, userId, "CatalogImport", "importExport.go", "ImportStrainsFromXlsx")
	if err != nil {
		return 0, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()

	imported := 0
	for idx, row := range rows[1:] {
		name := cell(row, 0)
		if name == "" {
			continue
		}
		cloneStock, err := parseStockCell(cell(row, 3))
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("row %d: %v", idx+2, err)
		}
		seedStock, err := parseStockCell(cell(row, 4))
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("row %d: %v", idx+2, err)
		}

		input := models.NewGeneticStrain{
			Name:       name,
			Bank:       cell(row, 1),
			Parents:    cell(row, 2),
			CloneStock: cloneStock,
			SeedStock:  seedStock,
		}
		if _, err := MergeStrainTx(tx, userId, &input); err != nil {
			tx.Rollback()
			config.LogError(logger, "importExport.go", "ImportStrainsFromXlsx", "MergeStrainTx", name, err)
			return 0, fmt.Errorf("row %d: %v", idx+2, err)
		}
		imported++
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return 0, err
	}

	models.PublishCollectionEvent(ctx, models.CollectionCatalog)
	return imported, nil
}

// ExportCatalogToXlsx writes the user's full catalog as a spreadsheet in
// the same column layout the importer reads, so an export round-trips.
func ExportCatalogToXlsx(ctx context.Context) (*excelize.File, error) {

	strains, err := models.GetStrains(ctx, nil)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(importSheetName); err != nil {
		return nil, err
	}

	f.SetCellValue(importSheetName, "A1", "Name")
	f.SetCellValue(importSheetName, "B1", "Bank")
	f.SetCellValue(importSheetName, "C1", "Parents")
	f.SetCellValue(importSheetName, "D1", "Clones")
	f.SetCellValue(importSheetName, "E1", "Seeds")
	f.SetCellValue(importSheetName, "F1", "Favorite")

	for i, strain := range strains {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(importSheetName, "A"+rowNo, strain.Name)
		f.SetCellValue(importSheetName, "B"+rowNo, strain.Bank)
		f.SetCellValue(importSheetName, "C"+rowNo, strain.Parents)
		f.SetCellValue(importSheetName, "D"+rowNo, strain.CloneStock)
		f.SetCellValue(importSheetName, "E"+rowNo, strain.SeedStock)
		f.SetCellValue(importSheetName, "F"+rowNo, utils.DereferencePtr(strain.Favorite))
	}

	return f, nil
}

// ExportHarvestHistoryToXlsx writes the finalized-cycle archive as a
// spreadsheet, one row per harvest.
func ExportHarvestHistoryToXlsx(ctx context.Context) (*excelize.File, error) {

	harvests, err := reports.GetHarvestHistoryReport(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(importSheetName); err != nil {
		return nil, err
	}

	f.SetCellValue(importSheetName, "A1", "Harvest")
	f.SetCellValue(importSheetName, "B1", "Sala")
	f.SetCellValue(importSheetName, "C1", "Strain")
	f.SetCellValue(importSheetName, "D1", "Plants")
	f.SetCellValue(importSheetName, "E1", "DryWeightGrams")
	f.SetCellValue(importSheetName, "F1", "FloraDays")
	f.SetCellValue(importSheetName, "G1", "DryingDays")
	f.SetCellValue(importSheetName, "H1", "FinalizedDate")

	for i, h := range harvests {
		rowNo := fmt.Sprint(i + 2)
		f.SetCellValue(importSheetName, "A"+rowNo, h.CicloName)
		f.SetCellValue(importSheetName, "B"+rowNo, h.SalaName)
		f.SetCellValue(importSheetName, "C"+rowNo, h.PrimaryStrain)
		f.SetCellValue(importSheetName, "D"+rowNo, h.PlantCount)
		f.SetCellValue(importSheetName, "E"+rowNo, h.DryWeightGrams.String())
		f.SetCellValue(importSheetName, "F"+rowNo, h.FloraDays)
		f.SetCellValue(importSheetName, "G"+rowNo, h.DryingDays)
		if h.FinalizedAt != nil {
			f.SetCellValue(importSheetName, "H"+rowNo, h.FinalizedAt.UTC().Format("2006-01-02"))
		}
	}

	return f, nil
}
