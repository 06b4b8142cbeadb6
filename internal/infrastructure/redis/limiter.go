package redisinfra

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/estore-auth/internal/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindow is a sorted-set sliding-window log shared by every gateway
// instance. Each request is a member scored by its arrival time in ms.
type SlidingWindow struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewSlidingWindow(client redis.Cmdable, prefix string) *SlidingWindow {
	return &SlidingWindow{client: client, prefix: prefix, now: time.Now}
}

var _ ratelimit.Limiter = (*SlidingWindow)(nil)

func (s *SlidingWindow) Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	cutoff := now.Add(-window).UnixMilli()
	k := s.prefix + key
	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		p.ZAdd(ctx, k, redis.Z{Score: float64(nowMs), Member: member})
		card = p.ZCard(ctx, k)
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		p.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("sliding window %s: %w", key, err)
	}

	count := int(card.Val())
	d := ratelimit.Decision{Limit: limit, Allowed: count <= limit}
	if !d.Allowed {
		// rejected requests do not occupy a slot
		if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
			return ratelimit.Decision{}, fmt.Errorf("sliding window %s: %w", key, err)
		}
		count--
	}
	d.Remaining = limit - count
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	d.ResetAt = now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		d.ResetAt = time.UnixMilli(int64(zs[0].Score)).Add(window)
	}
	return d, nil
}
