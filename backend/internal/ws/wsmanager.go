package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"docServer/backend/internal/cache"
	"docServer/backend/internal/collab"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// 全局的 WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

type Manager struct {
	hub      *Hub
	svc      collab.Service
	presence cache.PresenceRegistry
	sem      *collab.SemaphoreControl
}

func NewManager(hub *Hub, svc collab.Service, presence cache.PresenceRegistry, sem *collab.SemaphoreControl) *Manager {
	return &Manager{hub: hub, svc: svc, presence: presence, sem: sem}
}

// WebSocketConnect 处理 /collab/documents/:docID/ws。
// 鉴权中间件在此之前已把 userId/username 写入 gin.Context；
// 没有可用身份的连接在升级前直接拒绝，不产生任何房间/在线状态副作用。
func (m *Manager) WebSocketConnect(c *gin.Context) {
	docID := c.Param("docID")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "MISSING_DOC_ID", "message": "document id is required"})
		return
	}

	userID := c.GetUint64("userId")
	username := c.GetString("username")
	if userID == 0 || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "identity is missing"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	defer conn.Close()

	wsConn := NewConn(conn, m.hub, docID, userID, username, m.svc, m.presence, m.sem)

	// 先启动写循环，确保后续入队的消息可以被及时发送
	go wsConn.writeLoop()

	// 入场：加入房间 -> 注册在线状态 -> 广播 user_join（含本人）
	m.hub.Join(docID, wsConn)
	if err := m.presence.Increment(c.Request.Context(), docID, userID, username); err != nil {
		log.Printf("presence increment error (user=%d, doc=%s): %v", userID, docID, err)
	}
	m.hub.Broadcast(docID, UserJoinMessage{Type: "user_join", UserID: userID, Username: username}, nil)

	// 退场序列无条件执行（连接异常断开也一样）：
	// 离开房间 -> 注销在线状态 -> 向剩余成员广播 user_leave -> 关闭出站队列。
	// 各步尽力而为，单步失败不中断后续步骤。
	// 请求级 ctx 在断连时可能已取消，这里用独立的超时 ctx。
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		m.hub.Leave(docID, wsConn)
		if err := m.presence.Decrement(teardownCtx, docID, userID); err != nil {
			log.Printf("presence decrement error (user=%d, doc=%s): %v", userID, docID, err)
		}
		m.hub.Broadcast(docID, UserLeaveMessage{Type: "user_leave", UserID: userID, Username: username}, nil)
		close(wsConn.send)
	}()

	// 读循环（阻塞至连接关闭）
	wsConn.readLoop(c.Request.Context())
}
