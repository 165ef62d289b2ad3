package ws

import (
	"sync"
)

// Hub 维护 docID -> 房间（连接集合）的路由表。
// 房间在第一个连接 Join 时惰性创建，最后一个连接 Leave 时整体删除，
// 之后再次 Join 会得到一个全新的空房间，不残留任何状态。
type Hub struct {
	// 读写锁，保护 rooms 在并发 Join/Leave/Broadcast 下安全访问
	mu sync.RWMutex
	// docID -> set of connections
	// 房间里存的是连接而不是 userID：一个用户可开多个标签页（多连接），广播要逐连接发
	rooms map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Conn]struct{})}
}

// Join 将连接加入指定文档房间；同一连接重复 Join 等价于一次（幂等）
func (h *Hub) Join(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[docID] == nil {
		h.rooms[docID] = make(map[*Conn]struct{})
	}
	h.rooms[docID][c] = struct{}{}
}

// Leave 将连接从指定文档房间移除；房间空了则回收房间本身
func (h *Hub) Leave(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[docID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, docID)
		}
	}
}

// RoomSize 返回房间当前连接数；房间不存在返回 0
func (h *Hub) RoomSize(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[docID])
}

// Broadcast 把消息投递给房间内除 exclude 外的全部连接，返回投递数。
// 现有五种事件都不排除发送者（exclude 传 nil），客户端会收到自己动作的回显。
// 房间不存在则是 no-op，返回 0。
// 注意：必须在持锁期间入队。Leave 之后连接的 send 通道会被关闭，
// 持锁入队保证不会往已关闭的通道里写。
func (h *Hub) Broadcast(docID string, msg OutboundMessage, exclude *Conn) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.rooms[docID] {
		if c == exclude {
			continue
		}
		if c.enqueue(msg) {
			delivered++
		}
	}
	return delivered
}
