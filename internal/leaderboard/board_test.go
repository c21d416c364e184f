package leaderboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/RPS-Server/internal/models"
	"github.com/jacl-coder/RPS-Server/internal/store"
)

func waitEntries(t *testing.T, ch <-chan []models.LeaderboardEntry, match func([]models.LeaderboardEntry) bool) []models.LeaderboardEntry {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case entries := <-ch:
			if match(entries) {
				return entries
			}
		case <-deadline:
			t.Fatal("等待排行榜更新超时")
			return nil
		}
	}
}

func TestBoard_RecomputesOnChange(t *testing.T) {
	ctx := context.Background()
	scores := store.NewMemoryScoreStore()
	require.NoError(t, scores.WriteBest(ctx, "alice", 50))

	board := NewBoard(scores, 10)
	updates := make(chan []models.LeaderboardEntry, 16)
	sub := board.Watch(func(entries []models.LeaderboardEntry) { updates <- entries })
	defer sub.Unsubscribe()

	require.NoError(t, board.Start(ctx))
	defer board.Stop()
	assert.Error(t, board.Start(ctx))

	entries := waitEntries(t, updates, func(e []models.LeaderboardEntry) bool { return len(e) == 1 })
	assert.Equal(t, "alice", entries[0].Username)
	assert.True(t, board.Loaded())

	require.NoError(t, scores.WriteBest(ctx, "bob", 80))
	entries = waitEntries(t, updates, func(e []models.LeaderboardEntry) bool { return len(e) == 2 })
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, 2, entries[1].Rank)

	rank, ok := board.RankOf("alice")
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	assert.Len(t, board.Top(1), 1)
	assert.Len(t, board.Snapshot(), 2)
}

func TestBoard_WatchAfterLoad(t *testing.T) {
	ctx := context.Background()
	scores := store.NewMemoryScoreStore()
	require.NoError(t, scores.WriteBest(ctx, "carol", 3))

	board := NewBoard(scores, 0)
	loaded := make(chan []models.LeaderboardEntry, 4)
	first := board.Watch(func(entries []models.LeaderboardEntry) { loaded <- entries })
	require.NoError(t, board.Start(ctx))
	defer board.Stop()
	waitEntries(t, loaded, func(e []models.LeaderboardEntry) bool { return len(e) == 1 })
	first.Unsubscribe()

	// 已加载时注册会立即收到当前榜单
	got := make(chan []models.LeaderboardEntry, 4)
	sub := board.Watch(func(entries []models.LeaderboardEntry) { got <- entries })
	defer sub.Unsubscribe()

	entries := waitEntries(t, got, func([]models.LeaderboardEntry) bool { return true })
	require.Len(t, entries, 1)
	assert.Equal(t, "carol", entries[0].Username)
}

func TestBoard_UnsubscribedWatcherNotCalled(t *testing.T) {
	ctx := context.Background()
	scores := store.NewMemoryScoreStore()
	board := NewBoard(scores, 10)

	calls := make(chan []models.LeaderboardEntry, 4)
	sub := board.Watch(func(entries []models.LeaderboardEntry) { calls <- entries })
	sub.Unsubscribe()

	require.NoError(t, board.Start(ctx))
	defer board.Stop()
	require.NoError(t, scores.WriteBest(ctx, "dave", 1))

	require.Eventually(t, func() bool {
		_, ok := board.RankOf("dave")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case entries := <-calls:
		t.Fatalf("已取消的回调不应被调用: %v", entries)
	default:
	}
}

func TestBoard_WatchInitialDeliveryNotOvertaken(t *testing.T) {
	board := NewBoard(store.NewMemoryScoreStore(), 10)
	board.update(models.ScoreSnapshot{"alice": {Username: "alice", Score: 1}})

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := make(chan []models.LeaderboardEntry, 4)
	var first sync.Once
	go board.Watch(func(entries []models.LeaderboardEntry) {
		first.Do(func() {
			close(entered)
			<-release
		})
		calls <- entries
	})
	<-entered

	updated := make(chan struct{})
	go func() {
		board.update(models.ScoreSnapshot{
			"alice": {Username: "alice", Score: 1},
			"bob":   {Username: "bob", Score: 5},
		})
		close(updated)
	}()

	// 初次回调未返回前，新榜单不能先送达
	time.Sleep(50 * time.Millisecond)
	select {
	case <-updated:
		t.Fatal("初次回调完成前不应推送新榜单")
	default:
	}
	close(release)

	initial := waitEntries(t, calls, func([]models.LeaderboardEntry) bool { return true })
	assert.Len(t, initial, 1)
	latest := waitEntries(t, calls, func([]models.LeaderboardEntry) bool { return true })
	require.Len(t, latest, 2)
	assert.Equal(t, "bob", latest[0].Username)
	<-updated
}
