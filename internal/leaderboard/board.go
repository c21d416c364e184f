// board.go

package leaderboard

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/jacl-coder/RPS-Server/internal/models"
	"github.com/jacl-coder/RPS-Server/internal/store"
)

// WatchFunc 排行榜变化回调
type WatchFunc func(entries []models.LeaderboardEntry)

// Board 实时排行榜。订阅最高分存储，每次快照变化时整体重算
type Board struct {
	store store.ScoreStore
	limit int

	// deliverMu 保证每个回调按快照先后收到榜单，先于 mu 加锁
	deliverMu sync.Mutex

	mu       sync.RWMutex
	snapshot models.ScoreSnapshot
	top      []models.LeaderboardEntry
	loaded   bool
	watchers map[uint64]WatchFunc
	nextID   uint64
	sub      store.Subscription
}

// NewBoard 创建排行榜
func NewBoard(st store.ScoreStore, limit int) *Board {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Board{
		store:    st,
		limit:    limit,
		snapshot: make(models.ScoreSnapshot),
		top:      []models.LeaderboardEntry{},
		watchers: make(map[uint64]WatchFunc),
	}
}

// Start 开始订阅
func (b *Board) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.sub != nil {
		b.mu.Unlock()
		return fmt.Errorf("排行榜已经在运行")
	}
	b.mu.Unlock()

	sub, err := b.store.SubscribeAll(ctx, b.update)
	if err != nil {
		return fmt.Errorf("订阅最高分失败: %w", err)
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	log.Printf("排行榜已启动")
	return nil
}

// Stop 取消订阅
func (b *Board) Stop() {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// update 收到新快照后重算
func (b *Board) update(snapshot models.ScoreSnapshot) {
	top := Rank(snapshot, b.limit)

	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.snapshot = snapshot.Clone()
	b.top = top
	b.loaded = true
	watchers := make([]WatchFunc, 0, len(b.watchers))
	for _, fn := range b.watchers {
		watchers = append(watchers, fn)
	}
	b.mu.Unlock()

	for _, fn := range watchers {
		fn(copyEntries(top))
	}
}

// Loaded 是否已收到首个快照
func (b *Board) Loaded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loaded
}

// Top 前 limit 名，limit <= 0 时使用创建时的条数
func (b *Board) Top(limit int) []models.LeaderboardEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit == b.limit {
		return copyEntries(b.top)
	}
	return Rank(b.snapshot, limit)
}

// RankOf 用户当前名次
func (b *Board) RankOf(username string) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return UserRank(b.snapshot, username)
}

// Snapshot 最近一次快照的拷贝
func (b *Board) Snapshot() models.ScoreSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot.Clone()
}

// Watch 注册变化回调，已加载时立即回调一次。回调里不能再调用 Watch。
// 返回的订阅用于取消
func (b *Board) Watch(fn WatchFunc) store.Subscription {
	b.deliverMu.Lock()
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.watchers[id] = fn
	loaded := b.loaded
	top := copyEntries(b.top)
	b.mu.Unlock()

	if loaded {
		fn(top)
	}
	b.deliverMu.Unlock()

	var once sync.Once
	return store.SubscriptionFunc(func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			b.mu.Unlock()
		})
	})
}

func copyEntries(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	return append([]models.LeaderboardEntry{}, entries...)
}
