package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/jacl-coder/RPS-Server/config"
	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/leaderboard"
)

// Gateway HTTP与WebSocket入口
type Gateway struct {
	config   *config.Config
	sessions *game.SessionManager
	service  *game.Service
	board    *leaderboard.Board

	httpServer  *http.Server
	rateLimiter *RateLimiter
	mutex       sync.Mutex
	isRunning   bool
}

// NewGateway 创建新的网关
func NewGateway(cfg *config.Config, sessions *game.SessionManager, service *game.Service, board *leaderboard.Board) *Gateway {
	return &Gateway{
		config:   cfg,
		sessions: sessions,
		service:  service,
		board:    board,
	}
}

// Start 启动网关
func (g *Gateway) Start() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isRunning {
		return fmt.Errorf("网关已经在运行")
	}

	g.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", g.config.Server.GatewayPort),
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("API网关启动，监听端口: %d", g.config.Server.GatewayPort)
		if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务器错误: %v", err)
		}
	}()

	g.isRunning = true
	return nil
}

// Stop 停止网关
func (g *Gateway) Stop() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if g.rateLimiter != nil {
		g.rateLimiter.Close()
	}
	if err := g.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	g.isRunning = false
	log.Println("API网关已停止")
	return nil
}

// Handler 创建HTTP处理器
func (g *Gateway) Handler() http.Handler {
	r := mux.NewRouter()

	authHandler := NewAuthHandler(g.sessions, g.config.Auth.JWTSecret, g.config.Auth.TokenTTL)
	gameHandler := NewGameHandler(authHandler, g.service)
	statsHandler := NewStatsHandler(authHandler, g.service, g.board)
	wsHandler := NewWSHandler(authHandler, g.service, g.board)

	authHandler.RegisterHandlers(r)
	gameHandler.RegisterHandlers(r)
	statsHandler.RegisterHandlers(r)
	wsHandler.RegisterHandlers(r)

	// 健康检查端点
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		sendSuccess(w, "OK", map[string]interface{}{
			"sessions":           g.sessions.Count(),
			"leaderboard_loaded": g.board.Loaded(),
		})
	}).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "接口不存在", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sendError(w, "不支持的请求方法", http.StatusMethodNotAllowed)
	})

	return g.applyMiddleware(r)
}

// applyMiddleware 应用中间件
func (g *Gateway) applyMiddleware(handler http.Handler) http.Handler {
	if g.rateLimiter == nil {
		g.rateLimiter = NewRateLimiter(g.config.Server.RateLimitRPS, g.config.Server.RateLimitBurst)
	}

	// 按顺序应用中间件（最后应用的在最外层）
	handler = g.rateLimiter.Middleware(handler)
	handler = CORSMiddleware(handler)
	handler = SecurityMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)

	return handler
}
