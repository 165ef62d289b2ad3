package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"docServer/backend/internal/cache"
	"docServer/backend/internal/collab"

	"github.com/gorilla/websocket"
)

// Conn 是一个用户到某个文档的单条活动连接（一个用户多个标签页就是多个 Conn）
type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	docID    string
	userID   uint64
	username string
	// 出站队列；writeLoop 持续消费，enqueue 非阻塞投递
	send chan OutboundMessage
	// 协作引擎服务
	svc collab.Service
	// 在线状态注册表
	presence cache.PresenceRegistry
	// 持久化并发信号量
	sem *collab.SemaphoreControl
}

func NewConn(ws *websocket.Conn, hub *Hub, docID string, userID uint64, username string,
	svc collab.Service, presence cache.PresenceRegistry, sem *collab.SemaphoreControl) *Conn {
	return &Conn{
		ws:       ws,
		hub:      hub,
		docID:    docID,
		userID:   userID,
		username: username,
		send:     make(chan OutboundMessage, 32),
		svc:      svc,
		presence: presence,
		sem:      sem,
	}
}

// enqueue 非阻塞投递出站消息；队列满（慢客户端/临近关闭）则丢弃这一帧，
// 绝不因单个坏连接阻塞广播方
func (c *Conn) enqueue(msg OutboundMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		log.Printf("send queue full, drop %s frame (user=%d doc=%s)", msg.MessageType(), c.userID, c.docID)
		return false
	}
}

// sendError 仅回给本连接，不进房间广播
func (c *Conn) sendError(code string) {
	c.enqueue(ServerMessage{Type: "error", Content: code})
}

// readLoop 逐帧处理入站消息直到连接关闭。单 goroutine 顺序消费，
// 保证同一连接的帧严格按到达顺序处理。
func (c *Conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Printf("websocket read error (user=%d, doc=%s): %v", c.userID, c.docID, err)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// 单条消息解析失败不是致命错误：提示发送方，连接保持
			log.Printf("malformed frame (user=%d, doc=%s): %v", c.userID, c.docID, err)
			c.sendError("MALFORMED_MESSAGE")
			continue
		}

		switch msg.Type {
		case "cursor_position":
			if len(msg.Position) == 0 {
				c.sendError("MISSING_POSITION")
				continue
			}
			c.hub.Broadcast(c.docID, CursorUpdateMessage{
				Type:     "cursor_position_update",
				UserID:   c.userID,
				Username: c.username,
				Position: msg.Position,
			}, nil)

		case "content_change":
			if len(msg.Content) == 0 {
				c.sendError("MISSING_CONTENT")
				continue
			}
			c.handleContentChange(ctx, msg)

		case "selection_change":
			c.hub.Broadcast(c.docID, SelectionUpdateMessage{
				Type:      "selection_change_update",
				UserID:    c.userID,
				Username:  c.username,
				Selection: msg.Selection,
			}, nil)

		case "loadDocumentContent":
			content, version, err := c.svc.CurrentContent(ctx, c.docID)
			if err != nil {
				log.Printf("load document content error (doc=%s): %v", c.docID, err)
				c.sendError(err.Error())
				continue
			}
			c.enqueue(ContentLoadMessage{Type: "document_content", Content: json.RawMessage(content), Version: version})

		case "show_members":
			members, err := c.presence.Members(ctx, c.docID)
			if err != nil {
				log.Printf("get members error (doc=%s): %v", c.docID, err)
				c.sendError("GET_MEMBERS_FAILED")
				continue
			}
			out := make([]PresenceMember, len(members))
			for i, m := range members {
				out[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.enqueue(MembersMessage{Type: "members", Members: out})

		default:
			// 忽略未知类型
		}
	}
}

// handleContentChange：先持久化（覆盖当前内容 + 追加版本），成功后才广播。
// 持久化失败只通知发送方，房间其他成员不受影响，连接保持可重试。
func (c *Conn) handleContentChange(ctx context.Context, msg ClientMessage) {
	applyCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := c.sem.Acquire(applyCtx); err != nil {
		c.sendError(err.Error())
		return
	}
	defer c.sem.Release()

	if _, err := c.svc.ApplyContentChange(applyCtx, c.docID, c.userID, c.username, string(msg.Content)); err != nil {
		log.Printf("content change persist error (user=%d, doc=%s): %v", c.userID, c.docID, err)
		c.sendError(err.Error())
		return
	}

	c.hub.Broadcast(c.docID, ContentUpdateMessage{
		Type:     "content_change_update",
		UserID:   c.userID,
		Username: c.username,
		Content:  msg.Content,
		Delta:    msg.Delta,
	}, nil)
}

// writeLoop 持续消费出站队列直到 send 被关闭
func (c *Conn) writeLoop() {
	for msg := range c.send {
		_ = c.ws.WriteJSON(msg)
	}
}
