package api

import (
	"net/http"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/gin-gonic/gin"
)

func listSalasHandler(c *gin.Context) {
	salas, err := models.GetSalas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, salas)
}

func createSalaHandler(c *gin.Context) {
	var input models.NewSala
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	sala, err := models.CreateSala(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sala)
}

func updateSalaHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewSala
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	sala, err := models.UpdateSala(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sala)
}

type positionRequest struct {
	Position *int `json:"position" binding:"required"`
}

func setSalaPositionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	sala, err := models.SetSalaPosition(c.Request.Context(), id, *req.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sala)
}

func deleteSalaHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	sala, err := workflow.DeleteSala(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sala)
}
