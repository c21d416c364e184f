// websocket.go

package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/jacl-coder/RPS-Server/internal/game"
	"github.com/jacl-coder/RPS-Server/internal/leaderboard"
	"github.com/jacl-coder/RPS-Server/internal/models"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 读取超时时间
	pongWait = 60 * time.Second

	// 发送 ping 的间隔时间
	pingPeriod = (pongWait * 9) / 10

	// 最大消息大小
	maxMessageSize = 4 * 1024

	// 发送队列长度
	sendBufferSize = 64
)

// 消息类型
const (
	MessagePlay        = "play"
	MessageReset       = "reset"
	MessageState       = "state"
	MessageResult      = "result"
	MessageLeaderboard = "leaderboard"
	MessageError       = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message 消息结构
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSHandler 实时连接处理器：推送排行榜和会话状态，接收出拳
type WSHandler struct {
	auth    *AuthHandler
	service *game.Service
	board   *leaderboard.Board
}

// wsClient 一条WebSocket连接
type wsClient struct {
	conn *websocket.Conn
	sess *game.Session
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewWSHandler 创建实时连接处理器
func NewWSHandler(auth *AuthHandler, service *game.Service, board *leaderboard.Board) *WSHandler {
	return &WSHandler{
		auth:    auth,
		service: service,
		board:   board,
	}
}

// RegisterHandlers 注册HTTP处理器
func (h *WSHandler) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/ws", h.handleWSConnection)
}

// handleWSConnection 处理WebSocket连接
func (h *WSHandler) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.authenticate(r)
	if err != nil {
		sendError(w, err.Error(), http.StatusUnauthorized)
		return
	}

	// 升级HTTP连接为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		sess: sess,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	// 排行榜订阅挂在会话上，登出时自动取消
	sub, err := sess.AttachSubscription(h.board.Watch(func(entries []models.LeaderboardEntry) {
		client.push(MessageLeaderboard, entries)
	}))
	if err != nil {
		client.push(MessageError, errorPayload(err.Error()))
		client.close()
		go client.writePump(context.Background())
		return
	}

	log.Printf("玩家 %s 已连接，会话: %s", sess.Username(), sess.ID())
	client.push(MessageState, sess.State())

	go client.writePump(sess.Context())
	go func() {
		h.readPump(client)
		sub.Unsubscribe()
	}()
}

// readPump 从WebSocket读取数据
func (h *WSHandler) readPump(c *wsClient) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket错误: %v", err)
			}
			return
		}

		c.sess.Touch()
		h.handleMessage(c, message)
	}
}

// writePump 向WebSocket写入数据，会话登出后关闭连接
func (c *wsClient) writePump(sessCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-sessCtx.Done():
			c.flush()
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "会话已结束"))
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush 写出队列中剩余的消息
func (c *wsClient) flush() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// push 把消息放入发送队列，队列满时丢弃
func (c *wsClient) push(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("编码%s消息失败: %v", msgType, err)
		return
	}
	message, err := json.Marshal(Message{Type: msgType, Payload: data})
	if err != nil {
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- message:
	default:
		log.Printf("会话 %s 发送队列已满，丢弃%s消息", c.sess.ID(), msgType)
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}

// handleMessage 处理接收到的消息
func (h *WSHandler) handleMessage(c *wsClient, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.push(MessageError, errorPayload("无效的消息格式"))
		return
	}

	switch msg.Type {
	case MessagePlay:
		h.handlePlay(c, msg.Payload)
	case MessageReset:
		c.sess.Reset()
		c.push(MessageState, c.sess.State())
	case MessageState:
		c.push(MessageState, c.sess.State())
	default:
		c.push(MessageError, errorPayload("未知的消息类型: "+msg.Type))
	}
}

// handlePlay 处理出拳消息
func (h *WSHandler) handlePlay(c *wsClient, payload json.RawMessage) {
	var req PlayRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.push(MessageError, errorPayload("无效的出拳请求"))
		return
	}

	move, err := models.ParseMove(req.Move)
	if err != nil {
		c.push(MessageError, errorPayload(err.Error()))
		return
	}

	result, err := h.service.Play(c.sess.Context(), c.sess, move)
	if err != nil {
		c.push(MessageError, errorPayload(err.Error()))
		return
	}

	c.push(MessageResult, result)
	c.push(MessageState, c.sess.State())

	// 最高分保存失败时补发一次状态，让客户端看到提示
	if result.Persist != nil {
		go func() {
			if err := <-result.Persist; err != nil {
				c.push(MessageState, c.sess.State())
			}
		}()
	}
}
