// Package notify hands supplier notifications to an outbound mail worker.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"procurement-flow/internal/core"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message is the queued envelope read by the mail worker.
type Message struct {
	ID           string            `json:"id"`
	Kind         string            `json:"kind"`
	QueuedAt     time.Time         `json:"queued_at"`
	Notification core.Notification `json:"notification"`
}

const kindPurchaseOrder = "purchase_order.issued"

// RedisQueue appends messages to a Redis list with RPUSH.
type RedisQueue struct {
	rdb    redis.Cmdable
	key    string
	logger *zap.Logger
	now    func() time.Time
}

var _ core.Notifier = (*RedisQueue)(nil)

func NewRedisQueue(rdb redis.Cmdable, key string, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{rdb: rdb, key: key, logger: logger, now: time.Now}
}

func (q *RedisQueue) Enqueue(ctx context.Context, n core.Notification) error {
	msg := Message{
		ID:           ulid.Make().String(),
		Kind:         kindPurchaseOrder,
		QueuedAt:     q.now().UTC(),
		Notification: n,
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	q.logger.Info("supplier notification queued",
		zap.String("message_id", msg.ID), zap.String("to", n.To), zap.String("subject", n.Subject))
	return nil
}

// LogNotifier only logs. Used when no queue is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Enqueue(_ context.Context, n core.Notification) error {
	l.logger.Info("supplier notification (no queue configured)",
		zap.String("to", n.To), zap.Strings("cc", n.CC), zap.String("subject", n.Subject))
	return nil
}
