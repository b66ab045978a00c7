package api

import (
	"io"
	"net/http"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"bitbucket.org/verdealba/cultiva_backend/utils"
	"github.com/gin-gonic/gin"
)

// eventsHandler streams collection-changed events over SSE. Fan-out rides
// the per-user redis pub/sub channel, so events published by any instance
// reach every live session of the user. Payloads carry only the collection
// name; the client refetches through the regular endpoints.
func eventsHandler(c *gin.Context) {
	userId, ok := utils.GetUserIdFromContext(c.Request.Context())
	if !ok || userId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rdb := config.GetRedisDB()
	if rdb == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	sub := rdb.Subscribe(c.Request.Context(), models.EventChannel(userId))
	defer sub.Close()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Flush()

	ch := sub.Channel()
	c.Stream(func(w io.Writer) bool {
		select {
		case msg, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("change", msg.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
