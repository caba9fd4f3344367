package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/KYB-Sentinel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KYB-Sentinel/pkg/errors"
	"github.com/turtacn/KYB-Sentinel/pkg/types/common"
)

// unlockScript releases the lock only when the caller still owns it, so an
// expired-and-reacquired lock is never released by the previous holder.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// CycleLockFactory implements the per-counterparty cycle lock on Redis SETNX
// with a TTL, so at most one worker process runs a check cycle for a
// counterparty at a time.  The TTL must exceed the cycle deadline; a crashed
// worker's lock expires on its own.
type CycleLockFactory struct {
	client *Client
	ttl    time.Duration
	logger logging.Logger
}

// NewCycleLockFactory constructs the factory.  ttl bounds how long a crashed
// holder can block a counterparty.
func NewCycleLockFactory(client *Client, ttl time.Duration, log logging.Logger) *CycleLockFactory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CycleLockFactory{client: client, ttl: ttl, logger: log.Named("cycle_lock")}
}

// Acquire attempts the per-counterparty lock.  Contention returns ok=false
// without error; the caller treats that as a skip.
func (f *CycleLockFactory) Acquire(ctx context.Context, counterpartyID common.ID) (func(), bool, error) {
	key := f.client.Key("cycle_lock", counterpartyID)
	token := uuid.NewString()

	ok, err := f.client.rdb.SetNX(ctx, key, token, f.ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire cycle lock")
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release must not inherit a cancelled cycle context.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, f.client.rdb, []string{key}, token).Err(); err != nil {
			f.logger.Warn("failed to release cycle lock",
				logging.String("counterparty_id", counterpartyID.String()),
				logging.Err(err))
		}
	}
	return release, true, nil
}
