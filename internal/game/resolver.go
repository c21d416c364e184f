// resolver.go

package game

import (
	"fmt"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// beats 每种出拳能克制的出拳
var beats = map[models.Move]models.Move{
	models.MoveRock:     models.MoveScissors,
	models.MoveScissors: models.MovePaper,
	models.MovePaper:    models.MoveRock,
}

// Beats a 是否克制 b
func Beats(a, b models.Move) bool {
	mustValid(a)
	mustValid(b)
	return beats[a] == b
}

// Resolve 判定一回合，返回玩家一方的结果和得分
func Resolve(player, opponent models.Move) (models.Outcome, int) {
	mustValid(player)
	mustValid(opponent)

	var outcome models.Outcome
	switch {
	case player == opponent:
		outcome = models.OutcomeDraw
	case beats[player] == opponent:
		outcome = models.OutcomeWin
	default:
		outcome = models.OutcomeLose
	}
	return outcome, PointsFor(outcome)
}

// PointsFor 结果对应的分数：胜+1，负-1，平0
func PointsFor(outcome models.Outcome) int {
	switch outcome {
	case models.OutcomeWin:
		return 1
	case models.OutcomeLose:
		return -1
	case models.OutcomeDraw:
		return 0
	}
	panic(fmt.Errorf("game: %w: %d", models.ErrInvalidOutcome, int(outcome)))
}

func mustValid(m models.Move) {
	if !m.Valid() {
		panic(fmt.Errorf("game: %w: %d", models.ErrInvalidMove, int(m)))
	}
}
