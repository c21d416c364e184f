package store

import (
	"context"
	"sync"
	"time"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// MemoryScoreStore 进程内最高分存储，用于单机部署和测试
type MemoryScoreStore struct {
	mu      sync.RWMutex
	records models.ScoreSnapshot
	subs    map[uint64]*memorySubscription
	nextID  uint64
	now     func() time.Time
}

type memorySubscription struct {
	notify chan struct{}
	stop   chan struct{}
	once   sync.Once
}

// NewMemoryScoreStore 创建进程内存储
func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{
		records: make(models.ScoreSnapshot),
		subs:    make(map[uint64]*memorySubscription),
		now:     time.Now,
	}
}

// ReadBest 读取用户最高分
func (s *MemoryScoreStore) ReadBest(ctx context.Context, username string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[username].Score, nil
}

// WriteBest 写入用户最高分并通知所有订阅者
func (s *MemoryScoreStore) WriteBest(ctx context.Context, username string, score int) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records[username] = models.ScoreRecord{
		Username:    username,
		Score:       score,
		LastUpdated: s.now(),
	}
	for _, sub := range s.subs {
		sub.signal()
	}
	s.mu.Unlock()
	return nil
}

// Snapshot 当前全部记录的拷贝
func (s *MemoryScoreStore) Snapshot() models.ScoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records.Clone()
}

// SubscribeAll 订阅分数变化。连续多次写入可能合并为一次推送，推送的总是最新快照
func (s *MemoryScoreStore) SubscribeAll(ctx context.Context, handler SnapshotHandler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &memorySubscription{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	sub.signal()

	go func() {
		for {
			select {
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			case <-sub.notify:
				select {
				case <-sub.stop:
					return
				default:
				}
				handler(s.Snapshot())
			}
		}
	}()

	return SubscriptionFunc(func() {
		sub.once.Do(func() {
			close(sub.stop)
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}), nil
}

func (sub *memorySubscription) signal() {
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}
