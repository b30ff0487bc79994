package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDeduper_Claim(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	deduper := NewRedisDeduper(rdb)
	ttl := 24 * time.Hour

	t.Run("first claim wins", func(t *testing.T) {
		mock.ExpectSetNX(DedupeKey("user-1:payroll:paid:rec-1"), "1", ttl).SetVal(true)

		ok, err := deduper.Claim(context.Background(), "user-1:payroll:paid:rec-1", ttl)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("repeat claim is dropped", func(t *testing.T) {
		mock.ExpectSetNX(DedupeKey("user-1:payroll:paid:rec-1"), "1", ttl).SetVal(false)

		ok, err := deduper.Claim(context.Background(), "user-1:payroll:paid:rec-1", ttl)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectSetNX(DedupeKey("k"), "1", ttl).SetErr(errors.New("connection refused"))

		_, err := deduper.Claim(context.Background(), "k", ttl)
		assert.ErrorContains(t, err, "failed to claim dedupe key")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
