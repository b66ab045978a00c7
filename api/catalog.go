package api

import (
	"net/http"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/gin-gonic/gin"
)

func listStrainsHandler(c *gin.Context) {
	var name *string
	if q := c.Query("name"); q != "" {
		name = &q
	}
	strains, err := models.GetStrains(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strains)
}

func getStrainHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	strain, err := models.GetStrain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func createStrainHandler(c *gin.Context) {
	var input models.NewGeneticStrain
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	strain, err := models.CreateStrain(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, strain)
}

func mergeStrainHandler(c *gin.Context) {
	var input models.NewGeneticStrain
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	strain, err := workflow.CreateOrMergeStrain(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func updateStrainHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewGeneticStrain
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	strain, err := models.UpdateStrain(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func deleteStrainHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	strain, err := models.DeleteStrain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func toggleStrainFavoriteHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	strain, err := models.ToggleStrainFavorite(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func setStrainPositionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	strain, err := models.SetStrainPosition(c.Request.Context(), id, *req.Position)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

type adjustStockRequest struct {
	Source models.StockSource `json:"source" binding:"required"`
	Delta  int                `json:"delta" binding:"required"`
}

func adjustStrainStockHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	strain, err := workflow.AdjustStrainStock(c.Request.Context(), id, req.Source, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, strain)
}

func importStrainsHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	imported, err := workflow.ImportStrainsFromXlsx(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": imported})
}

func exportCatalogHandler(c *gin.Context) {
	f, err := workflow.ExportCatalogToXlsx(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	filename := "catalog_" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
