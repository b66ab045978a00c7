package api

import (
	"context"
	"net/http"
	"strconv"

	"bitbucket.org/verdealba/cultiva_backend/middlewares"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/gin-gonic/gin"
)

// cicloRow is one entry of a cycle list payload: the cycle plus its resolved
// sala name and presentation metadata. Sala names go through the request's
// batched loader, so a page of cycles costs one sala query.
type cicloRow struct {
	*models.Ciclo
	SalaName     string                  `json:"sala_name"`
	PhaseDisplay models.PhaseDisplayInfo `json:"phase_display"`
}

func cicloRows(ctx context.Context, ciclos []*models.Ciclo) ([]cicloRow, error) {
	salaIds := make([]int, 0, len(ciclos))
	for _, ciclo := range ciclos {
		salaIds = append(salaIds, ciclo.SalaId)
	}
	salaIds = utils.UniqueSlice(salaIds)
	names := make(map[int]string, len(salaIds))
	if len(salaIds) > 0 {
		salas, errs := middlewares.GetSalas(ctx, salaIds)
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		for _, sala := range salas {
			names[sala.ID] = sala.Name
		}
	}
	rows := make([]cicloRow, 0, len(ciclos))
	for _, ciclo := range ciclos {
		rows = append(rows, cicloRow{
			Ciclo:        ciclo,
			SalaName:     names[ciclo.SalaId],
			PhaseDisplay: models.PhaseDisplay(ciclo.CurrentPhaseToken()),
		})
	}
	return rows, nil
}

func respondCicloList(c *gin.Context, ciclos []*models.Ciclo) {
	rows, err := cicloRows(c.Request.Context(), ciclos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func listCiclosHandler(c *gin.Context) {
	var salaId *int
	if q := c.Query("sala_id"); q != "" {
		id, err := strconv.Atoi(q)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sala_id"})
			return
		}
		salaId = &id
	}
	ciclos, err := models.GetCiclos(c.Request.Context(), salaId)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCicloList(c, ciclos)
}

func listFinalizedCiclosHandler(c *gin.Context) {
	ciclos, err := models.GetFinalizedCiclos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondCicloList(c, ciclos)
}

func listPhenohuntsHandler(c *gin.Context) {
	ciclos, err := models.GetActivePhenohunts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondCicloList(c, ciclos)
}

// cicloDetail is the single-cycle payload: the cycle, its sala name,
// presentation metadata, and the catalog rows of its allocated strains so the
// client has live stock figures when it opens the manage-genetics view.
type cicloDetail struct {
	*models.Ciclo
	SalaName     string                  `json:"sala_name"`
	PhaseDisplay models.PhaseDisplayInfo `json:"phase_display"`
	Catalog      []*models.GeneticStrain `json:"catalog"`
}

// getCicloHandler also runs the week reconcile step, so merely opening a
// cycle heals stale or legacy schedules.
func getCicloHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	ciclo, err := models.GetCiclo(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ciclo, err = workflow.ReconcileCicloWeeks(ctx, ciclo)
	if err != nil {
		respondError(c, err)
		return
	}
	sala, err := middlewares.GetSala(ctx, ciclo.SalaId)
	if err != nil {
		respondError(c, err)
		return
	}
	strainIds := make([]int, 0, len(ciclo.Genetics))
	for _, genetic := range ciclo.Genetics {
		strainIds = append(strainIds, genetic.StrainId)
	}
	strainIds = utils.UniqueSlice(strainIds)
	catalog := []*models.GeneticStrain{}
	if len(strainIds) > 0 {
		strains, errs := middlewares.GetStrains(ctx, strainIds)
		for _, err := range errs {
			if err != nil {
				respondError(c, err)
				return
			}
		}
		catalog = strains
	}
	c.JSON(http.StatusOK, cicloDetail{
		Ciclo:        ciclo,
		SalaName:     sala.Name,
		PhaseDisplay: models.PhaseDisplay(ciclo.CurrentPhaseToken()),
		Catalog:      catalog,
	})
}

func createCicloHandler(c *gin.Context) {
	var input models.NewCiclo
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.CreateCiclo(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ciclo)
}

func updateCicloHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateCicloInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.UpdateCiclo(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

type updateGeneticsRequest struct {
	Genetics []models.NewGeneticAllocation `json:"genetics" binding:"required"`
}

func updateCicloGeneticsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updateGeneticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.UpdateCicloGenetics(c.Request.Context(), id, req.Genetics)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func advanceToFloweringHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ciclo, err := workflow.AdvanceToFlowering(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func beginDryingHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ciclo, err := workflow.BeginDrying(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func finalizeCicloHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.FinalizeCicloInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.FinalizeCiclo(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func addCicloWeekHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ciclo, err := workflow.AddCicloWeek(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func removeLastCicloWeekHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ciclo, err := workflow.RemoveLastCicloWeek(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func deleteCicloHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ciclo, err := workflow.DeleteCiclo(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}
