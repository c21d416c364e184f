package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/models"
)

// 用户名最大长度
const maxUsernameLength = 32

var (
	errMissingToken   = errors.New("缺少令牌")
	errInvalidToken   = errors.New("无效的令牌")
	errSessionExpired = errors.New("会话已失效")
)

// AuthHandler 认证处理器
type AuthHandler struct {
	sessions *game.SessionManager
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// Claims 令牌声明，Subject 为用户名
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type sessionKey struct{}

// sessionFromContext 取出认证中间件放入的会话
func sessionFromContext(ctx context.Context) (*game.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(*game.Session)
	return sess, ok
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(sessions *game.SessionManager, secret string, tokenTTL time.Duration) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthHandler{
		sessions: sessions,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *AuthHandler) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodPost)
	r.Handle("/auth/logout", h.RequireSession(h.handleLogout)).Methods(http.MethodPost)
	r.Handle("/auth/validate", h.RequireSession(h.handleValidate)).Methods(http.MethodGet)
}

// handleLogin 处理登录请求：创建会话并签发令牌
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "无效的请求格式", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLength {
		sendError(w, fmt.Sprintf("用户名不能为空且不超过%d个字符", maxUsernameLength), http.StatusBadRequest)
		return
	}

	sess := h.sessions.Create()
	// 最高分在后台读取，结果通过会话状态返回
	if _, err := sess.Login(username); err != nil {
		h.sessions.Remove(sess.ID())
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expiresAt, err := h.generateToken(sess.ID(), username)
	if err != nil {
		log.Printf("生成令牌失败: %v", err)
		h.sessions.Remove(sess.ID())
		sendError(w, "生成令牌失败", http.StatusInternalServerError)
		return
	}

	log.Printf("玩家 %s 登录，会话: %s", username, sess.ID())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AuthResponse{
		Success:   true,
		Message:   "登录成功",
		Token:     token,
		SessionID: sess.ID(),
		Username:  username,
		ExpiresAt: expiresAt,
	})
}

// handleLogout 处理登出请求
func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	username := sess.Username()
	h.sessions.Remove(sess.ID())

	log.Printf("玩家 %s 登出，会话: %s", username, sess.ID())
	sendSuccess(w, "登出成功", nil)
}

// handleValidate 验证令牌
func (h *AuthHandler) handleValidate(w http.ResponseWriter, r *http.Request) {
	claims, err := h.parseToken(extractToken(r))
	if err != nil {
		sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	sendSuccess(w, "令牌有效", models.PlayerSession{
		SessionID: claims.SessionID,
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// RequireSession 认证中间件，把会话放入请求上下文
func (h *AuthHandler) RequireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.authenticate(r)
		if err != nil {
			sendError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		sess.Touch()
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate 校验令牌并找到对应会话
func (h *AuthHandler) authenticate(r *http.Request) (*game.Session, error) {
	claims, err := h.parseToken(extractToken(r))
	if err != nil {
		return nil, err
	}

	sess, ok := h.sessions.Get(claims.SessionID)
	if !ok || sess.Username() != claims.Subject {
		return nil, errSessionExpired
	}
	return sess, nil
}

// generateToken 签发HS256令牌
func (h *AuthHandler) generateToken(sessionID, username string) (string, time.Time, error) {
	now := h.now()
	expiresAt := now.Add(h.tokenTTL)

	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// parseToken 解析并校验令牌
func (h *AuthHandler) parseToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", token.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// extractToken 从 Authorization 头或 token 查询参数读取令牌
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
