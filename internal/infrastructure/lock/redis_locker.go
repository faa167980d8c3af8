// Package lock provides a Redis-backed material lock shared by every instance of the service.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/wms-platform/reallocation-service/internal/application"
	"github.com/wms-platform/reallocation-service/pkg/logging"
)

const keyPrefix = "lock:reallocation:material:"

// Config holds the redsync mutex settings. A held lock is extended every ExtendInterval,
// or Expiry/3 when that is zero, until it is released.
type Config struct {
	Expiry         time.Duration
	Tries          int
	RetryDelay     time.Duration
	DriftFactor    float64
	ExtendInterval time.Duration
}

// DefaultConfig returns settings suited to a single commit
func DefaultConfig() Config {
	return Config{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  100 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

func (c Config) extendInterval() time.Duration {
	if c.ExtendInterval > 0 {
		return c.ExtendInterval
	}
	return c.Expiry / 3
}

// RedisMaterialLocker implements application.MaterialLocker with redsync
type RedisMaterialLocker struct {
	rs     *redsync.Redsync
	config Config
	logger *logging.Logger
}

// NewRedisMaterialLocker creates a locker on top of an existing go-redis client
func NewRedisMaterialLocker(client redis.UniversalClient, config Config, logger *logging.Logger) *RedisMaterialLocker {
	return &RedisMaterialLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		config: config,
		logger: logger.WithComponent("material-lock"),
	}
}

// Key returns the Redis key guarding a material
func Key(materialID string) string {
	return keyPrefix + materialID
}

// LockMaterial acquires the material mutex, retrying per Config until ctx is done
func (l *RedisMaterialLocker) LockMaterial(ctx context.Context, materialID string) (application.ReleaseFunc, error) {
	if materialID == "" {
		return nil, errors.New("material id is required")
	}

	mutex := l.rs.NewMutex(
		Key(materialID),
		redsync.WithExpiry(l.config.Expiry),
		redsync.WithTries(l.config.Tries),
		redsync.WithRetryDelay(l.config.RetryDelay),
		redsync.WithDriftFactor(l.config.DriftFactor),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isContention(ctx, err) {
			return nil, fmt.Errorf("%w %s: %w", application.ErrMaterialLockTimeout, materialID, err)
		}
		return nil, fmt.Errorf("failed to acquire material lock %s: %w", materialID, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(mutex, materialID, stop, done)

	var once sync.Once
	var releaseErr error
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done

			ok, err := mutex.UnlockContext(ctx)
			if err != nil {
				l.logger.WithError(err).Error("Failed to release material lock", "materialId", materialID)
				releaseErr = fmt.Errorf("failed to release material lock %s: %w", materialID, err)
				return
			}
			if !ok {
				l.logger.Warn("Material lock expired before release", "materialId", materialID)
			}
		})
		return releaseErr
	}, nil
}

// keepAlive extends the mutex until stop is closed
func (l *RedisMaterialLocker) keepAlive(mutex *redsync.Mutex, materialID string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := l.config.extendInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			ok, err := mutex.ExtendContext(ctx)
			cancel()
			if err != nil || !ok {
				l.logger.WithError(err).Warn("Failed to extend material lock", "materialId", materialID)
			}
		}
	}
}

// isContention reports whether acquisition failed because another holder owns the lock
func isContention(ctx context.Context, err error) bool {
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		errors.As(err, &nodeTaken) ||
		ctx.Err() != nil
}
