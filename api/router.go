package api

import (
	"bitbucket.org/verdealba/cultiva_backend/middlewares"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the REST surface. Everything under /api requires a
// session; /auth is the only anonymous group.
func RegisterRoutes(r *gin.Engine) {

	auth := r.Group("/auth")
	{
		auth.POST("/register", registerHandler)
		auth.POST("/login", loginHandler)
	}

	app := r.Group("/api", middlewares.RequireAuth())
	{
		me := app.Group("/me")
		{
			me.GET("", profileHandler)
			me.PUT("/public-profile", setPublicProfileHandler)
			me.POST("/password", changePasswordHandler)
			me.POST("/device-tokens", registerDeviceTokenHandler)
		}

		salas := app.Group("/salas")
		{
			salas.GET("", listSalasHandler)
			salas.POST("", createSalaHandler)
			salas.PUT("/:id", updateSalaHandler)
			salas.PUT("/:id/position", setSalaPositionHandler)
			salas.DELETE("/:id", deleteSalaHandler)
		}

		catalog := app.Group("/catalog/strains")
		{
			catalog.GET("", listStrainsHandler)
			catalog.GET("/:id", getStrainHandler)
			catalog.POST("", createStrainHandler)
			catalog.POST("/merge", mergeStrainHandler)
			catalog.PUT("/:id", updateStrainHandler)
			catalog.DELETE("/:id", deleteStrainHandler)
			catalog.POST("/:id/favorite", toggleStrainFavoriteHandler)
			catalog.PUT("/:id/position", setStrainPositionHandler)
			catalog.POST("/:id/stock", adjustStrainStockHandler)
		}
		app.POST("/catalog/import", importStrainsHandler)
		app.GET("/catalog/export", exportCatalogHandler)

		ciclos := app.Group("/ciclos")
		{
			ciclos.GET("", listCiclosHandler)
			ciclos.GET("/finalized", listFinalizedCiclosHandler)
			ciclos.GET("/phenohunts", listPhenohuntsHandler)
			ciclos.GET("/:id", getCicloHandler)
			ciclos.POST("", createCicloHandler)
			ciclos.PUT("/:id", updateCicloHandler)
			ciclos.PUT("/:id/genetics", updateCicloGeneticsHandler)
			ciclos.POST("/:id/advance", advanceToFloweringHandler)
			ciclos.POST("/:id/dry", beginDryingHandler)
			ciclos.POST("/:id/finalize", finalizeCicloHandler)
			ciclos.POST("/:id/weeks", addCicloWeekHandler)
			ciclos.DELETE("/:id/weeks/last", removeLastCicloWeekHandler)
			ciclos.DELETE("/:id", deleteCicloHandler)

			ciclos.GET("/:id/logs", listLogEntriesHandler)
			ciclos.POST("/:id/logs", createLogEntryHandler)
			ciclos.DELETE("/:id/logs/:logId", deleteLogEntryHandler)

			ciclos.PUT("/:id/phenos/:phenoId/decision", setPhenoDecisionHandler)
			ciclos.PUT("/:id/phenos/:phenoId/evaluation", updatePhenoEvaluationHandler)
			ciclos.POST("/:id/phenos/:phenoId/promote", promotePhenoHandler)
		}

		notifications := app.Group("/notifications")
		{
			notifications.GET("", listNotificationsHandler)
			notifications.POST("/:id/read", markNotificationReadHandler)
			notifications.POST("/read-all", markAllNotificationsReadHandler)
		}

		rpt := app.Group("/reports")
		{
			rpt.GET("/dashboard", dashboardReportHandler)
			rpt.GET("/harvests", harvestHistoryHandler)
			rpt.GET("/harvests/export", exportHarvestHistoryHandler)
			rpt.GET("/stock", strainCommitmentHandler)
		}

		jars := app.Group("/jars")
		{
			jars.GET("", listCuringJarsHandler)
			jars.DELETE("/:id", deleteCuringJarHandler)
		}

		app.GET("/events", eventsHandler)
	}
}
