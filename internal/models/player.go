// player.go

package models

import (
	"time"
)

// Notice 面向用户的临时提示，过期后自动消失
type Notice struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionState 会话状态的只读视图
type SessionState struct {
	SessionID    string   `json:"session_id"`
	Username     string   `json:"username"`
	CurrentScore int      `json:"current_score"`
	BestScore    int      `json:"best_score"`
	History      []Round  `json:"history"`
	ActiveRound  *Round   `json:"active_round,omitempty"`
	BestLoaded   bool     `json:"best_loaded"`
	Notices      []Notice `json:"notices"`
}

// PlayerSession 令牌中携带的会话信息
type PlayerSession struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}
