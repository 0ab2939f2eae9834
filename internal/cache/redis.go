package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const monthTTL = 15 * time.Minute

// Redis caches rendered month views as JSON payloads with a short TTL.
type Redis struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewRedis(addr, password string, db int, log *zap.Logger) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		log: log,
	}
}

var _ MonthCache = (*Redis)(nil)

func monthKey(userID uuid.UUID, year, month int) string {
	return fmt.Sprintf("calendar:%s:%04d-%02d", userID, year, month)
}

func (r *Redis) GetMonth(ctx context.Context, userID uuid.UUID, year, month int) ([]byte, bool) {
	payload, err := r.rdb.Get(ctx, monthKey(userID, year, month)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Debug("month cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

func (r *Redis) SetMonth(ctx context.Context, userID uuid.UUID, year, month int, payload []byte) {
	if err := r.rdb.Set(ctx, monthKey(userID, year, month), payload, monthTTL).Err(); err != nil {
		r.log.Debug("month cache write failed", zap.Error(err))
	}
}

func (r *Redis) InvalidateMonth(ctx context.Context, userID uuid.UUID, year, month int) {
	if err := r.rdb.Del(ctx, monthKey(userID, year, month)).Err(); err != nil {
		r.log.Debug("month cache invalidation failed", zap.Error(err))
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
