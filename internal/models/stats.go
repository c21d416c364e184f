// stats.go

package models

import (
	"time"
)

// PlayerStatistics 玩家累计战绩，按用户名索引
type PlayerStatistics struct {
	Username             string    `json:"username"`
	TotalGames           int       `json:"total_games"`
	Wins                 int       `json:"wins"`
	Losses               int       `json:"losses"`
	Draws                int       `json:"draws"`
	WinRate              float64   `json:"win_rate"` // 百分比 0-100
	TotalPoints          int       `json:"total_points"`
	AveragePointsPerGame float64   `json:"average_points_per_game"`
	CurrentStreak        int       `json:"current_streak"`
	LongestWinStreak     int       `json:"longest_win_streak"`
	LastPlayed           time.Time `json:"last_played"`
}

// NewPlayerStatistics 创建全部计数为0的战绩
func NewPlayerStatistics(username string, now time.Time) *PlayerStatistics {
	return &PlayerStatistics{
		Username:   username,
		LastPlayed: now,
	}
}

// ScoreRecord 最高分存储中的一条记录
type ScoreRecord struct {
	Username    string    `json:"username"`
	Score       int       `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ScoreSnapshot 所有用户最高分的快照（用户名 -> 记录）
type ScoreSnapshot map[string]ScoreRecord

// Clone 深拷贝快照
func (s ScoreSnapshot) Clone() ScoreSnapshot {
	out := make(ScoreSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Username    string    `json:"username"`
	Score       int       `json:"score"`
	LastUpdated time.Time `json:"last_updated"`
	Rank        int       `json:"rank"` // 排名，从1开始
}
