package api

import (
	"net/http"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/gin-gonic/gin"
)

type phenoDecisionRequest struct {
	Decision models.PhenoDecision `json:"decision" binding:"required"`
}

func setPhenoDecisionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	phenoId := c.Param("phenoId")
	var req phenoDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.SetPhenoDecision(c.Request.Context(), id, phenoId, req.Decision)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

func updatePhenoEvaluationHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	phenoId := c.Param("phenoId")
	var input workflow.PhenoEvaluationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	ciclo, err := workflow.UpdatePhenoEvaluation(c.Request.Context(), id, phenoId, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ciclo)
}

type promotePhenoRequest struct {
	Name string `json:"name" binding:"required"`
}

func promotePhenoHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	phenoId := c.Param("phenoId")
	var req promotePhenoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	strain, err := workflow.PromoteStrain(c.Request.Context(), id, phenoId, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, strain)
}
