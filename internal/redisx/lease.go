package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// hapus hanya kalau token masih milik kita
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Leaser hands out short-lived per-record leases so that scans running in
// different processes do not act on the same booking at the same time.
type Leaser struct {
	rdb   *redis.Client
	owner string
	ttl   time.Duration
}

func NewLeaser(rdb *redis.Client, owner string, ttl time.Duration) *Leaser {
	if ttl <= 0 {
		ttl = TTLLease
	}
	return &Leaser{rdb: rdb, owner: owner, ttl: ttl}
}

// Acquire tries to take the lease for (pass, id). When acquired is false
// someone else holds it and release is nil.
func (l *Leaser) Acquire(ctx context.Context, pass, id string) (release func(context.Context), acquired bool, err error) {
	key := fmt.Sprintf(KeyRecordLease, pass, id)
	token := l.owner + ":" + uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, true, nil
}

func (l *Leaser) Held(ctx context.Context, pass, id string) (bool, error) {
	return Exists(ctx, l.rdb, fmt.Sprintf(KeyRecordLease, pass, id))
}
