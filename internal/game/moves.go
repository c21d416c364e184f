package game

import (
	"crypto/rand"
	"io"
	"log"
	"math/big"
	mathrand "math/rand"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// MoveGenerator 对手出拳生成器
type MoveGenerator interface {
	Next() models.Move
}

// MoveGeneratorFunc 把函数适配为 MoveGenerator
type MoveGeneratorFunc func() models.Move

// Next 调用函数本身
func (f MoveGeneratorFunc) Next() models.Move { return f() }

// RandomMoveGenerator 均匀随机出拳，每次调用相互独立。
// Reader 为空时使用 crypto/rand
type RandomMoveGenerator struct {
	Reader io.Reader
}

// Next 随机选择一种出拳
func (g RandomMoveGenerator) Next() models.Move {
	reader := g.Reader
	if reader == nil {
		reader = rand.Reader
	}
	n, err := rand.Int(reader, big.NewInt(int64(len(models.Moves))))
	if err != nil {
		log.Printf("系统随机数不可用，改用伪随机出拳: %v", err)
		return models.Moves[mathrand.Intn(len(models.Moves))]
	}
	return models.Moves[n.Int64()]
}
