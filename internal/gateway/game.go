package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/models"
)

// GameHandler 对局处理器
type GameHandler struct {
	auth    *AuthHandler
	service *game.Service
}

// PlayRequest 出拳请求
type PlayRequest struct {
	Move string `json:"move"`
}

// PlayResponseData 出拳响应数据
type PlayResponseData struct {
	Result *game.PlayResult    `json:"result"`
	State  models.SessionState `json:"state"`
}

// MoveChoice 可选出拳
type MoveChoice struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// NewGameHandler 创建对局处理器
func NewGameHandler(auth *AuthHandler, service *game.Service) *GameHandler {
	return &GameHandler{auth: auth, service: service}
}

// RegisterHandlers 注册HTTP处理器
func (h *GameHandler) RegisterHandlers(r *mux.Router) {
	r.Handle("/game/play", h.auth.RequireSession(h.handlePlay)).Methods(http.MethodPost)
	r.Handle("/game/reset", h.auth.RequireSession(h.handleReset)).Methods(http.MethodPost)
	r.Handle("/game/state", h.auth.RequireSession(h.handleState)).Methods(http.MethodGet)
	r.HandleFunc("/game/choices", h.handleChoices).Methods(http.MethodGet)
}

// handlePlay 处理出拳
func (h *GameHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}

	move, err := models.ParseMove(req.Move)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Play(r.Context(), sess, move)
	if err != nil {
		if errors.Is(err, game.ErrNotLoggedIn) {
			sendError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		log.Printf("处理出拳失败: %v", err)
		sendError(w, "处理出拳失败", http.StatusInternalServerError)
		return
	}

	sendSuccess(w, result.Round.Outcome.String(), PlayResponseData{
		Result: result,
		State:  sess.State(),
	})
}

// handleReset 再来一局
func (h *GameHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	sess.Reset()
	sendSuccess(w, "已重置", sess.State())
}

// handleState 当前会话状态
func (h *GameHandler) handleState(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	sendSuccess(w, "获取成功", sess.State())
}

// handleChoices 列出可选出拳
func (h *GameHandler) handleChoices(w http.ResponseWriter, r *http.Request) {
	choices := lo.Map(models.Moves, func(m models.Move, _ int) MoveChoice {
		return MoveChoice{Name: m.String(), Emoji: m.Emoji()}
	})
	sendSuccess(w, "获取成功", choices)
}
