package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sigtopo/coop-driouch/internal/infrastructure/monitoring/logging"
	"github.com/sigtopo/coop-driouch/pkg/errors"
)

var ErrLeaseNotHeld = errors.New(errors.ErrCodeConflict, "lease not held by this owner")

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// Leaser hands out short non-blocking leases.  Replicas use them so that
// side effects of one dataset revision, such as archiving and publishing,
// run once across the fleet.
type Leaser struct {
	client   *Client
	logger   logging.Logger
	prefix   string
	newToken func() string
}

// NewLeaser returns a Leaser whose keys start with prefix.
func NewLeaser(client *Client, prefix string, log logging.Logger) *Leaser {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Leaser{client: client, logger: log.Named("lease"), prefix: prefix, newToken: uuid.NewString}
}

// Lease is a held lease.
type Lease struct {
	leaser *Leaser
	key    string
	token  string
}

// TryAcquire takes the lease named name for ttl.  It reports false without
// error when another owner holds it.
func (l *Leaser) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	rdb, err := l.client.cmd()
	if err != nil {
		return nil, false, err
	}
	key := l.prefix + "lease:" + name
	token := l.newToken()
	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire lease").WithDetail("name=" + name)
	}
	if !ok {
		l.logger.Debug("lease held elsewhere", logging.String("name", name))
		return nil, false, nil
	}
	return &Lease{leaser: l, key: key, token: token}, true, nil
}

// Release gives the lease back early so another owner may retry.
func (ls *Lease) Release(ctx context.Context) error {
	rdb, err := ls.leaser.client.cmd()
	if err != nil {
		return err
	}
	res, err := releaseScript.Run(ctx, rdb, []string{ls.key}, ls.token).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lease")
	}
	if res == 0 {
		return ErrLeaseNotHeld
	}
	return nil
}
