package api

import (
	"net/http"

	"bitbucket.org/verdealba/cultiva_backend/middlewares"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// curingJarRow carries the jar plus harvest figures resolved from its source
// cycle. Source cycles come through the request's batched loader.
type curingJarRow struct {
	*models.CuringJar
	DryWeightGrams decimal.Decimal `json:"dry_weight_grams"`
	FloraDays      int             `json:"flora_days"`
	DryingDays     int             `json:"drying_days"`
}

func listCuringJarsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	jars, err := models.GetCuringJars(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	cicloIds := make([]int, 0, len(jars))
	for _, jar := range jars {
		cicloIds = append(cicloIds, jar.SourceCicloId)
	}
	sources := make(map[int]*models.Ciclo, len(cicloIds))
	if len(cicloIds) > 0 {
		ciclos, errs := middlewares.GetCiclos(ctx, cicloIds)
		for _, err := range errs {
			if err != nil {
				respondError(c, err)
				return
			}
		}
		for _, ciclo := range ciclos {
			sources[ciclo.ID] = ciclo
		}
	}
	rows := make([]curingJarRow, 0, len(jars))
	for _, jar := range jars {
		row := curingJarRow{CuringJar: jar}
		if source, ok := sources[jar.SourceCicloId]; ok {
			row.DryWeightGrams = source.DryWeightGrams
			row.FloraDays = source.FloraDays
			row.DryingDays = source.DryingDays
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, rows)
}

func deleteCuringJarHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	jar, err := models.DeleteCuringJar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jar)
}
