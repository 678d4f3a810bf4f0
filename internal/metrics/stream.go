package metrics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/domain"
)

// streamMaxLen caps the event stream with approximate trimming.
const streamMaxLen = 1_000_000

// Stream is the append side of the lifecycle event stream. The outbox
// relay is its only producer.
type Stream struct {
	rdb *redis.Client
	key string
}

func NewStream(rdb *redis.Client, key string) *Stream {
	return &Stream{rdb: rdb, key: key}
}

// Append XADDs one event under the "event" field, trimming to the
// configured max length.
func (s *Stream) Append(ctx context.Context, ev domain.PaymentEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("stream append encode: %w", err)
	}
	err = s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{"event": raw},
	}).Err()
	if err != nil {
		return fmt.Errorf("stream append: %w", err)
	}
	return nil
}
