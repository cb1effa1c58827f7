package notify_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"procurement-flow/internal/cache"
	"procurement-flow/internal/core"
	"procurement-flow/internal/notify"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisQueue_Enqueue(t *testing.T) {
	_ = godotenv.Load("../../.env")
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}
	ctx := context.Background()
	rdb, err := cache.NewRedisClient(ctx, url)
	require.NoError(t, err)
	defer rdb.Close()

	const key = "procflow:test:mail"
	require.NoError(t, rdb.Del(ctx, key).Err())

	q := notify.NewRedisQueue(rdb, key, nil)
	require.NoError(t, q.Enqueue(ctx, core.Notification{
		To: "orders@acme.example", CC: []string{"qa@acme.example"}, Subject: "Purchase order PO-2027-00001",
	}))

	raw, err := rdb.LPop(ctx, key).Bytes()
	require.NoError(t, err)
	var msg notify.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "purchase_order.issued", msg.Kind)
	assert.Equal(t, "orders@acme.example", msg.Notification.To)
	assert.Equal(t, []string{"qa@acme.example"}, msg.Notification.CC)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, notify.NewLogNotifier(nil).Enqueue(context.Background(), core.Notification{To: "x@y.example"}))
}
