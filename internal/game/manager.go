// manager.go

package game

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jacl-coder/RPS-Server/internal/store"
)

// DefaultIdleTimeout 会话默认空闲超时
const DefaultIdleTimeout = 2 * time.Hour

// SessionManager 会话管理器
type SessionManager struct {
	store       store.ScoreStore
	opts        Options
	idleTimeout time.Duration

	sessions      map[string]*Session
	sessionsMutex sync.RWMutex

	// CleanupInterval 空闲会话检查间隔
	CleanupInterval time.Duration

	// 关闭信号
	shutdown  chan struct{}
	isRunning bool
	runMutex  sync.Mutex
}

// NewSessionManager 创建会话管理器
func NewSessionManager(st store.ScoreStore, opts Options, idleTimeout time.Duration) *SessionManager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &SessionManager{
		store:           st,
		opts:            opts.withDefaults(),
		idleTimeout:     idleTimeout,
		sessions:        make(map[string]*Session),
		CleanupInterval: time.Minute,
		shutdown:        make(chan struct{}),
	}
}

// Start 启动空闲会话清理
func (m *SessionManager) Start() error {
	m.runMutex.Lock()
	defer m.runMutex.Unlock()

	if m.isRunning {
		return fmt.Errorf("会话管理器已经在运行")
	}
	m.isRunning = true

	go m.cleanupLoop()
	return nil
}

// Stop 停止清理并登出全部会话
func (m *SessionManager) Stop() {
	m.runMutex.Lock()
	if !m.isRunning {
		m.runMutex.Unlock()
		return
	}
	m.isRunning = false
	close(m.shutdown)
	m.runMutex.Unlock()

	m.sessionsMutex.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.sessionsMutex.Unlock()

	for _, sess := range sessions {
		sess.Logout()
	}
	log.Printf("会话管理器已停止，关闭 %d 个会话", len(sessions))
}

// Create 创建新会话
func (m *SessionManager) Create() *Session {
	sess := NewSession(uuid.New().String(), m.store, m.opts)

	m.sessionsMutex.Lock()
	m.sessions[sess.ID()] = sess
	m.sessionsMutex.Unlock()

	return sess
}

// Get 获取会话
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.sessionsMutex.RLock()
	defer m.sessionsMutex.RUnlock()

	sess, exists := m.sessions[id]
	return sess, exists
}

// Remove 登出并移除会话
func (m *SessionManager) Remove(id string) {
	m.sessionsMutex.Lock()
	sess, exists := m.sessions[id]
	delete(m.sessions, id)
	m.sessionsMutex.Unlock()

	if exists {
		sess.Logout()
	}
}

// Count 当前会话数
func (m *SessionManager) Count() int {
	m.sessionsMutex.RLock()
	defer m.sessionsMutex.RUnlock()
	return len(m.sessions)
}

// cleanupLoop 定时清理
func (m *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(m.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupSessions()
		case <-m.shutdown:
			return
		}
	}
}

// cleanupSessions 清理空闲会话
func (m *SessionManager) cleanupSessions() {
	now := m.opts.Now()

	m.sessionsMutex.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActive()) > m.idleTimeout {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.sessionsMutex.Unlock()

	for _, sess := range idle {
		log.Printf("清理空闲会话: %s", sess.ID())
		sess.Logout()
	}
}
