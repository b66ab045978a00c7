package api

import (
	"net/http"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/models/reports"
	"bitbucket.org/verdealba/cultiva_backend/workflow"
	"github.com/gin-gonic/gin"
)

func dashboardReportHandler(c *gin.Context) {
	report, err := reports.GetDashboardReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func harvestHistoryHandler(c *gin.Context) {
	report, err := reports.GetHarvestHistoryReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func strainCommitmentHandler(c *gin.Context) {
	report, err := reports.GetStrainCommitmentReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func exportHarvestHistoryHandler(c *gin.Context) {
	f, err := workflow.ExportHarvestHistoryToXlsx(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	filename := "harvests_" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
