package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

func waitSnapshot(t *testing.T, ch <-chan models.ScoreSnapshot, match func(models.ScoreSnapshot) bool) models.ScoreSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("等待快照超时")
			return nil
		}
	}
}

func TestMemoryScoreStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScoreStore()

	best, err := s.ReadBest(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, best)

	require.NoError(t, s.WriteBest(ctx, "alice", 7))
	best, err = s.ReadBest(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 7, best)

	// 后写覆盖先写，不做比较
	require.NoError(t, s.WriteBest(ctx, "alice", 3))
	best, _ = s.ReadBest(ctx, "alice")
	assert.Equal(t, 3, best)

	assert.ErrorIs(t, s.WriteBest(ctx, "", 1), ErrEmptyUsername)
}

func TestMemoryScoreStore_SubscribeAll(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScoreStore()
	require.NoError(t, s.WriteBest(ctx, "bob", 2))

	ch := make(chan models.ScoreSnapshot, 16)
	sub, err := s.SubscribeAll(ctx, func(snap models.ScoreSnapshot) { ch <- snap })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	initial := waitSnapshot(t, ch, func(models.ScoreSnapshot) bool { return true })
	assert.Equal(t, 2, initial["bob"].Score)

	require.NoError(t, s.WriteBest(ctx, "carol", 9))
	snap := waitSnapshot(t, ch, func(s models.ScoreSnapshot) bool { _, ok := s["carol"]; return ok })
	assert.Equal(t, 9, snap["carol"].Score)
	assert.Equal(t, 2, snap["bob"].Score)
}

func TestMemoryScoreStore_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryScoreStore()

	ch := make(chan models.ScoreSnapshot, 16)
	sub, err := s.SubscribeAll(ctx, func(snap models.ScoreSnapshot) { ch <- snap })
	require.NoError(t, err)
	waitSnapshot(t, ch, func(models.ScoreSnapshot) bool { return true })

	sub.Unsubscribe()
	sub.Unsubscribe()

	require.NoError(t, s.WriteBest(ctx, "dave", 1))
	select {
	case snap := <-ch:
		t.Fatalf("取消订阅后不应再收到快照: %v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}
