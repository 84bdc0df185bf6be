package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

type Producer struct {
	r      redis.UniversalClient
	stream string
	maxLen int64
}

func NewProducer(r redis.UniversalClient, stream string, maxLen int64) *Producer {
	return &Producer{r: r, stream: stream, maxLen: maxLen}
}

// Encodes the job as JSON and appends it to the Redis Stream.
// Enqueueing is fire-and-forget from the mutating path's perspective:
// the filesystem change has already happened and stands either way.
func (p *Producer) enqueue(ctx context.Context, job InvalidateJob) error {
	raw, _ := json.Marshal(job)
	return p.r.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]any{
			"payload": string(raw),
			"attempt": 0,
		},
	}).Err()
}

// Invalidate requests the gateway cache entry for one relative asset
// path to be dropped.
func (p *Producer) Invalidate(ctx context.Context, key string) error {
	return p.enqueue(ctx, InvalidateJob{Key: key})
}

// InvalidateFolder requests every gateway cache entry under a folder
// namespace to be dropped.
func (p *Producer) InvalidateFolder(ctx context.Context, key string) error {
	return p.enqueue(ctx, InvalidateJob{Key: key, Prefix: true})
}
