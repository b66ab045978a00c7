package api

import (
	"net/http"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/gin-gonic/gin"
)

func listNotificationsHandler(c *gin.Context) {
	notifications, err := models.GetNotifications(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func markNotificationReadHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	notification, err := models.MarkNotificationRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func markAllNotificationsReadHandler(c *gin.Context) {
	if err := models.MarkAllNotificationsRead(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
