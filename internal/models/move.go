// move.go

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidMove 非法出拳
var ErrInvalidMove = errors.New("无效的出拳")

// ErrInvalidOutcome 非法对局结果
var ErrInvalidOutcome = errors.New("无效的对局结果")

// Move 出拳
type Move int

const (
	// MoveRock 石头
	MoveRock Move = iota + 1
	// MovePaper 布
	MovePaper
	// MoveScissors 剪刀
	MoveScissors
)

// Moves 全部合法出拳，顺序固定
var Moves = []Move{MoveRock, MovePaper, MoveScissors}

var moveNames = map[Move]string{
	MoveRock:     "rock",
	MovePaper:    "paper",
	MoveScissors: "scissors",
}

var moveEmojis = map[Move]string{
	MoveRock:     "🪨",
	MovePaper:    "📄",
	MoveScissors: "✂️",
}

// ParseMove 解析出拳名称（忽略大小写和首尾空白）
func ParseMove(s string) (Move, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range moveNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMove, s)
}

// Valid 是否为合法出拳
func (m Move) Valid() bool {
	_, ok := moveNames[m]
	return ok
}

func (m Move) String() string {
	if n, ok := moveNames[m]; ok {
		return n
	}
	return fmt.Sprintf("Move(%d)", int(m))
}

// Emoji 出拳对应的表情
func (m Move) Emoji() string {
	return moveEmojis[m]
}

// MarshalJSON 以小写名称序列化
func (m Move) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMove, int(m))
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON 从小写名称反序列化
func (m *Move) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMove(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Outcome 对局结果，相对于玩家一方
type Outcome int

const (
	// OutcomeWin 胜
	OutcomeWin Outcome = iota + 1
	// OutcomeLose 负
	OutcomeLose
	// OutcomeDraw 平
	OutcomeDraw
)

var outcomeNames = map[Outcome]string{
	OutcomeWin:  "win",
	OutcomeLose: "lose",
	OutcomeDraw: "draw",
}

// ParseOutcome 解析对局结果名称
func ParseOutcome(s string) (Outcome, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for o, n := range outcomeNames {
		if n == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

// Valid 是否为合法结果
func (o Outcome) Valid() bool {
	_, ok := outcomeNames[o]
	return ok
}

func (o Outcome) String() string {
	if n, ok := outcomeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MarshalJSON 以小写名称序列化
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return json.Marshal(o.String())
}

// UnmarshalJSON 从小写名称反序列化
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Round 一回合记录，创建后不再修改
type Round struct {
	ID           string    `json:"id"`
	PlayerMove   Move      `json:"player_move"`
	OpponentMove Move      `json:"opponent_move"`
	Outcome      Outcome   `json:"outcome"`
	Points       int       `json:"points"`
	PlayedAt     time.Time `json:"played_at"`
}
