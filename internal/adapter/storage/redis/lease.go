package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when this instance still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLease implements ports.SweepLease with SET NX PX.
type SweepLease struct {
	client goredis.UniversalClient
	prefix string
	owner  string
}

// NewSweepLease creates a lease held under the given owner identity.
func NewSweepLease(client goredis.UniversalClient, owner string) *SweepLease {
	return &SweepLease{
		client: client,
		prefix: keyPrefix + "lease:",
		owner:  owner,
	}
}

// Acquire takes the named lease for ttl. It returns false when another owner
// holds it.
func (l *SweepLease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+name, l.owner, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return result == "OK", nil
}

// Release drops the lease if this owner still holds it.
func (l *SweepLease) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.prefix + name}, l.owner).Err(); err != nil {
		return fmt.Errorf("redis lease release: %w", err)
	}
	return nil
}
