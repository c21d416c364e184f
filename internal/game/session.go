// session.go

package game

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jacl-coder/RPS-Server/internal/models"
	"github.com/jacl-coder/RPS-Server/internal/store"
)

// ErrNotLoggedIn 会话未登录
var ErrNotLoggedIn = errors.New("会话未登录")

// 会话默认参数
const (
	DefaultHistoryLimit = 10
	DefaultNoticeTTL    = 3 * time.Second
	DefaultStoreTimeout = 5 * time.Second
)

// Options 会话参数，零值字段使用默认值
type Options struct {
	HistoryLimit int
	NoticeTTL    time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.NoticeTTL <= 0 {
		o.NoticeTTL = DefaultNoticeTTL
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = DefaultStoreTimeout
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session 一个登录用户的对局状态
type Session struct {
	mu    sync.Mutex
	id    string
	store store.ScoreStore
	opts  Options

	username     string
	currentScore int
	bestScore    int
	bestLoaded   bool
	history      []models.Round
	active       *models.Round
	notices      []models.Notice

	// 每次登录或登出递增，旧登录的异步结果据此丢弃
	gen       uint64
	cancel    context.CancelFunc
	ctx       context.Context
	subs      map[uint64]store.Subscription
	nextSubID uint64

	// writeMu 串行化最高分写入，written* 记录本会话已写入的最高分
	writeMu     sync.Mutex
	writtenUser string
	writtenBest int

	lastActive time.Time
}

// NewSession 创建未登录的会话
func NewSession(id string, st store.ScoreStore, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		id:         id,
		store:      st,
		opts:       opts,
		lastActive: opts.Now(),
	}
}

// ID 会话ID
func (s *Session) ID() string {
	return s.id
}

// Username 当前登录用户，未登录时为空
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// LastActive 最后活跃时间
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch 刷新活跃时间
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.opts.Now()
	s.mu.Unlock()
}

// Login 登录并异步读取最高分。返回的通道在读取结束后关闭
func (s *Session) Login(username string) (<-chan struct{}, error) {
	if username == "" {
		return nil, store.ErrEmptyUsername
	}

	s.mu.Lock()
	stale := s.clearLocked()
	s.username = username
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.lastActive = s.opts.Now()
	gen := s.gen
	ctx := s.ctx
	s.mu.Unlock()

	unsubscribeAll(stale)

	done := make(chan struct{})
	go func() {
		defer close(done)

		rctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
		best, err := s.store.ReadBest(rctx, username)
		cancel()

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return
		}
		if err != nil {
			log.Printf("读取玩家 %s 最高分失败: %v", username, err)
			s.addNoticeLocked("无法读取最高分，暂按0分计算")
			best = 0
		}
		// 读取期间本地可能已经打出更高分
		if best > s.bestScore {
			s.bestScore = best
		}
		s.bestLoaded = true
	}()

	return done, nil
}

// Logout 登出，清空全部状态并取消订阅
func (s *Session) Logout() {
	s.mu.Lock()
	stale := s.clearLocked()
	s.mu.Unlock()

	unsubscribeAll(stale)
}

// clearLocked 清空状态，返回需要在解锁后取消的订阅
func (s *Session) clearLocked() []store.Subscription {
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = nil, nil

	stale := make([]store.Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		stale = append(stale, sub)
	}
	s.subs = nil

	s.username = ""
	s.currentScore = 0
	s.bestScore = 0
	s.bestLoaded = false
	s.history = nil
	s.active = nil
	s.notices = nil
	return stale
}

func unsubscribeAll(subs []store.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// AttachSubscription 把订阅挂到当前登录上，登出时一并取消。
// 返回的句柄取消订阅的同时把它从会话上摘除
func (s *Session) AttachSubscription(sub store.Subscription) (store.Subscription, error) {
	s.mu.Lock()
	if s.username == "" {
		s.mu.Unlock()
		sub.Unsubscribe()
		return nil, ErrNotLoggedIn
	}
	if s.subs == nil {
		s.subs = make(map[uint64]store.Subscription)
	}
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = sub
	s.mu.Unlock()

	var once sync.Once
	return store.SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			sub.Unsubscribe()
		})
	}), nil
}

// attachedCount 当前挂在会话上的订阅数
func (s *Session) attachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Context 当前登录的上下文，登出时取消
func (s *Session) Context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.ctx
}

// ApplyRound 把一回合计入会话。刷新最高分时异步写入存储，
// 返回的通道给出写入结果，无需写入时为nil
func (s *Session) ApplyRound(round models.Round) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyRoundLocked(round)
}

func (s *Session) applyRoundLocked(round models.Round) (<-chan error, error) {
	if s.username == "" {
		return nil, ErrNotLoggedIn
	}

	s.currentScore += round.Points

	s.history = append(s.history, models.Round{})
	copy(s.history[1:], s.history)
	s.history[0] = round
	if len(s.history) > s.opts.HistoryLimit {
		s.history = s.history[:s.opts.HistoryLimit]
	}

	active := round
	s.active = &active
	s.lastActive = s.opts.Now()

	if s.currentScore <= s.bestScore {
		return nil, nil
	}
	s.bestScore = s.currentScore
	return s.persistBestLocked(s.bestScore), nil
}

// persistBestLocked 异步写入最高分，失败只提示不回滚
func (s *Session) persistBestLocked(score int) <-chan error {
	username := s.username
	gen := s.gen
	result := make(chan error, 1)

	go func() {
		defer close(result)

		err := s.writeBest(username, score)
		if err != nil {
			log.Printf("保存玩家 %s 最高分 %d 失败: %v", username, score, err)
			s.mu.Lock()
			if s.gen == gen {
				s.addNoticeLocked("最高分保存失败，本局分数不受影响")
			}
			s.mu.Unlock()
		}
		result <- err
	}()

	return result
}

// writeBest 按顺序写入最高分。已经写入过不低于 score 的分数时跳过，
// 存储是后写覆盖，旧的低分不能盖掉新的高分
func (s *Session) writeBest(username string, score int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writtenUser == username && s.writtenBest >= score {
		return nil
	}

	// 登出后仍然写完已经达到的最高分
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.WriteBest(ctx, username, score); err != nil {
		return err
	}
	s.writtenUser, s.writtenBest = username, score
	return nil
}

// Reset 再来一局：只清除当前回合的展示
func (s *Session) Reset() {
	s.mu.Lock()
	s.active = nil
	s.lastActive = s.opts.Now()
	s.mu.Unlock()
}

// AddNotice 添加一条会自动过期的提示
func (s *Session) AddNotice(message string) {
	s.mu.Lock()
	s.addNoticeLocked(message)
	s.mu.Unlock()
}

func (s *Session) addNoticeLocked(message string) {
	now := s.opts.Now()
	s.pruneNoticesLocked(now)
	s.notices = append(s.notices, models.Notice{
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.NoticeTTL),
	})
}

func (s *Session) pruneNoticesLocked(now time.Time) {
	kept := s.notices[:0]
	for _, n := range s.notices {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	s.notices = kept
}

// State 会话状态快照
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneNoticesLocked(s.opts.Now())

	state := models.SessionState{
		SessionID:    s.id,
		Username:     s.username,
		CurrentScore: s.currentScore,
		BestScore:    s.bestScore,
		BestLoaded:   s.bestLoaded,
		History:      append([]models.Round{}, s.history...),
		Notices:      append([]models.Notice{}, s.notices...),
	}
	if s.active != nil {
		active := *s.active
		state.ActiveRound = &active
	}
	return state
}
