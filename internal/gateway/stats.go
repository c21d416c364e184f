// stats.go

package gateway

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/leaderboard"
)

// 排行榜单次查询上限
const maxLeaderboardLimit = 100

// StatsHandler 战绩与排行榜处理器
type StatsHandler struct {
	auth    *AuthHandler
	service *game.Service
	board   *leaderboard.Board
}

// RankData 名次数据
type RankData struct {
	Username string `json:"username"`
	Rank     int    `json:"rank"`
	Score    int    `json:"score"`
}

// NewStatsHandler 创建战绩处理器
func NewStatsHandler(auth *AuthHandler, service *game.Service, board *leaderboard.Board) *StatsHandler {
	return &StatsHandler{
		auth:    auth,
		service: service,
		board:   board,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *StatsHandler) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/stats/player/{username}", h.handlePlayerStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/players", h.handleAllStats).Methods(http.MethodGet)
	r.Handle("/stats/reset", h.auth.RequireSession(h.handleReset)).Methods(http.MethodPost)
	r.HandleFunc("/stats/leaderboard", h.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/stats/rank/{username}", h.handleRank).Methods(http.MethodGet)
}

// handlePlayerStats 处理玩家战绩查询
func (h *StatsHandler) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	st, ok := h.service.Statistics(username)
	if !ok {
		sendError(w, "玩家暂无战绩", http.StatusNotFound)
		return
	}
	sendSuccess(w, "获取成功", st)
}

// handleAllStats 全部玩家战绩
func (h *StatsHandler) handleAllStats(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, "获取成功", h.service.AllStatistics())
}

// handleReset 清零自己的战绩
func (h *StatsHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())

	st, err := h.service.ResetStatistics(r.Context(), sess.Username())
	if err != nil {
		// 内存中已经清零，只是没能落盘
		log.Printf("清零玩家 %s 战绩时保存失败: %v", sess.Username(), err)
		sess.AddNotice("战绩已清零，但保存失败")
	}
	sendSuccess(w, "战绩已清零", st)
}

// handleLeaderboard 处理排行榜查询
func (h *StatsHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			sendError(w, "无效的limit参数", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	sendSuccess(w, "获取成功", h.board.Top(limit))
}

// handleRank 查询玩家名次
func (h *StatsHandler) handleRank(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	rank, ok := h.board.RankOf(username)
	if !ok {
		sendError(w, "玩家不在排行榜中", http.StatusNotFound)
		return
	}

	sendSuccess(w, "获取成功", RankData{
		Username: username,
		Rank:     rank,
		Score:    h.board.Snapshot()[username].Score,
	})
}
