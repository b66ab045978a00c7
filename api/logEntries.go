package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/gin-gonic/gin"
)

func listLogEntriesHandler(c *gin.Context) {
	cicloId, ok := pathId(c)
	if !ok {
		return
	}
	var week *int
	if q := c.Query("week"); q != "" {
		w, err := strconv.Atoi(q)
		if err != nil || w <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid week"})
			return
		}
		week = &w
	}
	entries, err := models.GetLogEntries(c.Request.Context(), cicloId, week)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func createLogEntryHandler(c *gin.Context) {
	cicloId, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewLogEntry
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	input.CicloId = cicloId
	entry, err := models.CreateLogEntry(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func deleteLogEntryHandler(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("logId"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entry, err := models.DeleteLogEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}
