package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/utils"
)

// Collection names as the client subscribes to them. One changed-event per
// committed mutation; the client re-fetches the collection it watches.
const (
	CollectionSalas         = "salas"
	CollectionCiclos        = "ciclos"
	CollectionCatalog       = "catalog"
	CollectionNotifications = "notifications"
	CollectionCuringJars    = "curing_jars"
)

type CollectionEvent struct {
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// EventChannel is the per-user redis pub/sub channel carrying collection
// events to live sessions.
func EventChannel(userId string) string {
	return fmt.Sprintf("events:%s", userId)
}

// PublishCollectionEvent notifies the user's live sessions that a collection
// changed. Best effort, AFTER commit only: a failed publish must never roll
// back a mutation, and an event for an uncommitted write must never go out.
func PublishCollectionEvent(ctx context.Context, collection string) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == "" {
		return
	}
	event := CollectionEvent{Collection: collection, At: time.Now().UTC()}
	if err := config.PublishRedis(EventChannel(userId), event); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "events.go", "PublishCollectionEvent", "PublishRedis", collection, err)
	}
}
