package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"github.com/bsm/redislock"
)

// UserLock obtains a short redis lock scoped to one user. Used to serialize
// per-user routines that must not race across sessions (data migration).
// The returned release func is safe to call when acquisition succeeded.
func UserLock(ctx context.Context, userId string, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Avoid nil-pointer panics when Redis lock isn't initialized yet.
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", userId, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, userId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for userId", userId, err)
		return nil, errors.New("could not obtain lock for userId")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for userId", userId, err)
		return nil, err
	}
	release := func() {
		_ = lock.Release(ctx)
	}
	return release, nil
}
