package gateway

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimiter 按客户端IP限流的令牌桶
type RateLimiter struct {
	clients map[string]*ClientInfo
	mutex   sync.Mutex

	// 配置
	RequestsPerSecond int
	BurstSize         int
	CleanupInterval   time.Duration
	IdleTimeout       time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// ClientInfo 客户端信息
type ClientInfo struct {
	Limiter  *rate.Limiter
	LastSeen time.Time
}

// NewRateLimiter 创建新的频率限制器
func NewRateLimiter(requestsPerSecond, burstSize int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burstSize <= 0 {
		burstSize = 1
	}
	rl := &RateLimiter{
		clients:           make(map[string]*ClientInfo),
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
		stop:              make(chan struct{}),
	}

	// 启动清理协程
	go rl.cleanup()

	return rl
}

// Middleware 频率限制中间件
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(getClientIP(r)).Allow() {
			sendError(w, fmt.Sprintf("请求过于频繁，每秒最多允许 %d 次请求", rl.RequestsPerSecond),
				http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiter 获取或创建客户端的令牌桶
func (rl *RateLimiter) limiter(clientIP string) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	client, exists := rl.clients[clientIP]
	if !exists {
		client = &ClientInfo{
			Limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rl.RequestsPerSecond)), rl.BurstSize),
		}
		rl.clients[clientIP] = client
	}
	client.LastSeen = time.Now()
	return client.Limiter
}

// Close 停止清理协程
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup 清理长时间未访问的客户端
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.IdleTimeout)
			rl.mutex.Lock()
			for ip, client := range rl.clients {
				if client.LastSeen.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mutex.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// getClientIP 获取客户端IP
func getClientIP(r *http.Request) string {
	// 检查X-Forwarded-For头，取第一个地址
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	// 检查X-Real-IP头
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// 使用RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SecurityMiddleware 安全头中间件
func SecurityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		w.Header().Set("Server", "RPS-Server")

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware CORS中间件
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// 处理预检请求
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// RequestIDMiddleware 为每个请求分配ID
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		reqID, _ := r.Context().Value(requestIDKey{}).(string)
		log.Printf("%s %s %d %v [%s]",
			r.Method,
			r.URL.Path,
			recorder.statusCode,
			time.Since(start),
			reqID,
		)
	})
}

// responseRecorder 响应记录器
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader 记录状态码
func (rr *responseRecorder) WriteHeader(code int) {
	rr.statusCode = code
	rr.ResponseWriter.WriteHeader(code)
}

// Hijack WebSocket升级需要接管底层连接
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("响应不支持Hijack")
	}
	rr.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
