// Package stats 累计每个玩家的终身战绩，并整表持久化。
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// ErrEmptyUsername 用户名为空
var ErrEmptyUsername = errors.New("用户名不能为空")

// Aggregator 战绩聚合器，持有全部玩家的战绩表
type Aggregator struct {
	mu      sync.RWMutex
	storage Storage
	players map[string]*models.PlayerStatistics
	now     func() time.Time
}

// NewAggregator 创建空的聚合器，调用 Load 读取已保存的战绩
func NewAggregator(storage Storage) *Aggregator {
	return &Aggregator{
		storage: storage,
		players: make(map[string]*models.PlayerStatistics),
		now:     time.Now,
	}
}

// Load 读取整张战绩表。数据损坏时按空表处理，只在读取本身失败时返回错误
func (a *Aggregator) Load(ctx context.Context) error {
	data, err := a.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("读取战绩失败: %w", err)
	}

	players := make(map[string]*models.PlayerStatistics)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &players); err != nil {
			log.Printf("战绩数据损坏，按空表处理: %v", err)
			players = make(map[string]*models.PlayerStatistics)
		}
	}
	// "null" 也是合法的 JSON，解码后得到 nil map
	if players == nil {
		players = make(map[string]*models.PlayerStatistics)
	}
	for username, st := range players {
		if st == nil {
			delete(players, username)
			continue
		}
		st.Username = username
	}

	a.mu.Lock()
	a.players = players
	a.mu.Unlock()

	log.Printf("已加载 %d 名玩家的战绩", len(players))
	return nil
}

// Record 记录一回合结果。每回合必须且只能调用一次。
// 保存失败时返回错误，但内存中的战绩保留，下次保存会一并写入
func (a *Aggregator) Record(ctx context.Context, username string, outcome models.Outcome, points int) (models.PlayerStatistics, error) {
	if username == "" {
		return models.PlayerStatistics{}, ErrEmptyUsername
	}
	if !outcome.Valid() {
		panic(fmt.Errorf("stats: %w: %d", models.ErrInvalidOutcome, int(outcome)))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	st, ok := a.players[username]
	if !ok {
		st = models.NewPlayerStatistics(username, now)
		a.players[username] = st
	}

	st.TotalGames++
	st.TotalPoints += points

	switch outcome {
	case models.OutcomeWin:
		st.Wins++
		st.CurrentStreak++
		if st.CurrentStreak > st.LongestWinStreak {
			st.LongestWinStreak = st.CurrentStreak
		}
	case models.OutcomeLose:
		st.Losses++
		st.CurrentStreak = 0
	case models.OutcomeDraw:
		// 平局不影响连胜
		st.Draws++
	}

	recompute(st)
	st.LastPlayed = now

	return *st, a.saveLocked(ctx)
}

// Reset 把玩家战绩清零，不影响其他玩家
func (a *Aggregator) Reset(ctx context.Context, username string) (models.PlayerStatistics, error) {
	if username == "" {
		return models.PlayerStatistics{}, ErrEmptyUsername
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	st := models.NewPlayerStatistics(username, a.now())
	a.players[username] = st
	return *st, a.saveLocked(ctx)
}

// Get 读取单个玩家战绩
func (a *Aggregator) Get(username string) (models.PlayerStatistics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st, ok := a.players[username]
	if !ok {
		return models.PlayerStatistics{}, false
	}
	return *st, true
}

// All 全部玩家战绩，按用户名排序
func (a *Aggregator) All() []models.PlayerStatistics {
	a.mu.RLock()
	all := lo.MapToSlice(a.players, func(_ string, st *models.PlayerStatistics) models.PlayerStatistics {
		return *st
	})
	a.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Username < all[j].Username
	})
	return all
}

// recompute 每次从计数重新计算派生字段
func recompute(st *models.PlayerStatistics) {
	if st.TotalGames == 0 {
		st.WinRate = 0
		st.AveragePointsPerGame = 0
		return
	}
	st.WinRate = float64(st.Wins) / float64(st.TotalGames) * 100
	st.AveragePointsPerGame = float64(st.TotalPoints) / float64(st.TotalGames)
}

// saveLocked 整表覆盖写入
func (a *Aggregator) saveLocked(ctx context.Context) error {
	data, err := json.Marshal(a.players)
	if err != nil {
		return fmt.Errorf("序列化战绩失败: %w", err)
	}
	if err := a.storage.Save(ctx, data); err != nil {
		return fmt.Errorf("保存战绩失败: %w", err)
	}
	return nil
}
