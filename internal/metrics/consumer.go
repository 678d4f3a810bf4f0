package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/paymux/gateway/internal/domain"
)

const (
	readCount = 200
	readBlock = 2 * time.Second
)

// HistoryStore mirrors one aggregate snapshot per wall-clock minute
// into durable storage.
type HistoryStore interface {
	UpsertSnapshot(ctx context.Context, minute time.Time, key Key, windowMinutes int, agg Aggregate) error
}

// Consumer reads the event stream as a consumer-group member, folds
// events into the tracker, and publishes window aggregates.
type Consumer struct {
	rdb     *redis.Client
	stream  string
	group   string
	name    string
	tracker *Tracker
	hot     *HotStore
	history HistoryStore
	log     *slog.Logger

	lastMirror map[Key]int64
}

func NewConsumer(rdb *redis.Client, stream, group, name string, hot *HotStore, history HistoryStore, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		rdb:        rdb,
		stream:     stream,
		group:      group,
		name:       name,
		tracker:    NewTracker(),
		hot:        hot,
		history:    history,
		log:        log,
		lastMirror: make(map[Key]int64),
	}
}

// Run blocks until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	c.log.Info("metrics consumer started", "stream", c.stream, "group", c.group, "consumer", c.name)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{c.stream, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.log.Error("stream read failed", "err", err)
			time.Sleep(time.Second)
			continue
		}
		for _, st := range streams {
			for _, msg := range st.Messages {
				c.handle(ctx, msg)
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	defer func() {
		if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
			c.log.Warn("xack failed", "id", msg.ID, "err", err)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		c.log.Warn("stream message without event field", "id", msg.ID)
		return
	}
	var ev domain.PaymentEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		c.log.Warn("undecodable event dropped", "id", msg.ID, "err", err)
		return
	}
	StreamEventsConsumed.Inc()

	now := time.Now()
	key := c.tracker.Observe(ev, now)
	for _, w := range WindowMinutes {
		agg := c.tracker.Window(key, w, now)
		if err := c.hot.Publish(ctx, key, w, agg); err != nil {
			c.log.Error("aggregate publish failed", "gateway", key.GatewayID, "window_m", w, "err", err)
		}
		c.mirror(ctx, key, w, agg, now)
	}
}

// mirror writes at most one history snapshot per key per wall-clock
// minute, on the 5-minute window plus the rest piggybacked by upsert.
func (c *Consumer) mirror(ctx context.Context, key Key, windowMinutes int, agg Aggregate, now time.Time) {
	if c.history == nil {
		return
	}
	minute := now.Truncate(time.Minute)
	mk := Key{GatewayID: key.GatewayID, Method: key.Method, Bank: fmt.Sprintf("%s|%dm", key.Bank, windowMinutes)}
	if c.lastMirror[mk] == minute.Unix() {
		return
	}
	if err := c.history.UpsertSnapshot(ctx, minute, key, windowMinutes, agg); err != nil {
		c.log.Warn("history mirror failed", "gateway", key.GatewayID, "err", err)
		return
	}
	c.lastMirror[mk] = minute.Unix()
}
