// service.go

package game

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jacl-coder/RPS-Server/internal/models"
	"github.com/jacl-coder/RPS-Server/internal/stats"
)

// Service 对局服务：判定、计分、记录战绩
type Service struct {
	moves MoveGenerator
	stats *stats.Aggregator
}

// PlayResult 一次出拳的结果
type PlayResult struct {
	Round      models.Round            `json:"round"`
	Score      int                     `json:"score"`
	BestScore  int                     `json:"best_score"`
	Statistics models.PlayerStatistics `json:"statistics"`

	// Persist 刷新最高分时的写入结果，未刷新时为nil
	Persist <-chan error `json:"-"`
}

// NewService 创建对局服务，moves 为 nil 时使用均匀随机出拳
func NewService(moves MoveGenerator, agg *stats.Aggregator) *Service {
	if moves == nil {
		moves = RandomMoveGenerator{}
	}
	return &Service{moves: moves, stats: agg}
}

// Play 玩家出拳，完成一整回合。同一会话的回合按提交顺序依次处理
func (g *Service) Play(ctx context.Context, sess *Session, move models.Move) (*PlayResult, error) {
	if !move.Valid() {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidMove, int(move))
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.username == "" {
		return nil, ErrNotLoggedIn
	}

	opponent := g.moves.Next()
	outcome, points := Resolve(move, opponent)
	round := models.Round{
		ID:           uuid.New().String(),
		PlayerMove:   move,
		OpponentMove: opponent,
		Outcome:      outcome,
		Points:       points,
		PlayedAt:     sess.opts.Now(),
	}

	persist, err := sess.applyRoundLocked(round)
	if err != nil {
		return nil, err
	}

	st, err := g.stats.Record(ctx, sess.username, outcome, points)
	if err != nil {
		log.Printf("记录玩家 %s 战绩失败: %v", sess.username, err)
		sess.addNoticeLocked("战绩保存失败，将在下一局重试")
	}

	return &PlayResult{
		Round:      round,
		Score:      sess.currentScore,
		BestScore:  sess.bestScore,
		Statistics: st,
		Persist:    persist,
	}, nil
}

// Statistics 读取玩家战绩
func (g *Service) Statistics(username string) (models.PlayerStatistics, bool) {
	return g.stats.Get(username)
}

// AllStatistics 读取全部玩家战绩
func (g *Service) AllStatistics() []models.PlayerStatistics {
	return g.stats.All()
}

// ResetStatistics 清零玩家战绩
func (g *Service) ResetStatistics(ctx context.Context, username string) (models.PlayerStatistics, error) {
	return g.stats.Reset(ctx, username)
}
