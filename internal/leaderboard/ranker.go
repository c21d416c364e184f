// Package leaderboard 根据最高分快照计算排行榜。
package leaderboard

import (
	"sort"

	"github.com/samber/lo"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// DefaultLimit 排行榜默认条数
const DefaultLimit = 10

// Rank 按分数从高到低排序，同分按用户名升序，名次从1开始连续编号。
// limit <= 0 时使用 DefaultLimit
func Rank(snapshot models.ScoreSnapshot, limit int) []models.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLimit
	}

	records := lo.MapToSlice(snapshot, func(username string, r models.ScoreRecord) models.ScoreRecord {
		r.Username = username
		return r
	})
	sort.Slice(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		return records[i].Username < records[j].Username
	})

	if len(records) > limit {
		records = records[:limit]
	}

	entries := make([]models.LeaderboardEntry, 0, len(records))
	for i, r := range records {
		entries = append(entries, models.LeaderboardEntry{
			Username:    r.Username,
			Score:       r.Score,
			LastUpdated: r.LastUpdated,
			Rank:        i + 1,
		})
	}
	return entries
}

// UserRank 用户名次：1 + 分数严格高于该用户的人数。用户不在快照中时返回 false
func UserRank(snapshot models.ScoreSnapshot, username string) (int, bool) {
	record, ok := snapshot[username]
	if !ok {
		return 0, false
	}
	higher := lo.CountBy(lo.Values(snapshot), func(r models.ScoreRecord) bool {
		return r.Score > record.Score
	})
	return higher + 1, true
}
