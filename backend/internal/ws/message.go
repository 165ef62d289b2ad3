package ws

import "encoding/json"

// 客户端入站帧。type 决定哪些字段有意义：
// - cursor_position:  position
// - content_change:   content（必填）+ delta（可选）
// - selection_change: selection
// - loadDocumentContent / show_members: 无附加字段
// position/content/selection 对服务端是不透明的结构化负载，原样转发
type ClientMessage struct {
	Type      string          `json:"type"`
	Position  json.RawMessage `json:"position,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Delta     json.RawMessage `json:"delta,omitempty"`
	Selection json.RawMessage `json:"selection,omitempty"`
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

// 隐式实现 OutboundMessage 接口
func (m ServerMessage) MessageType() string          { return m.Type }
func (m UserJoinMessage) MessageType() string        { return m.Type }
func (m UserLeaveMessage) MessageType() string       { return m.Type }
func (m CursorUpdateMessage) MessageType() string    { return m.Type }
func (m ContentUpdateMessage) MessageType() string   { return m.Type }
func (m SelectionUpdateMessage) MessageType() string { return m.Type }
func (m MembersMessage) MessageType() string         { return m.Type }
func (m ContentLoadMessage) MessageType() string     { return m.Type }

type PresenceMember struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

// 通用服务端消息（error / feedback 等）
type ServerMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// 以下五种广播给同文档房间全体成员（含发送者本人，与前端约定一致）
type UserJoinMessage struct {
	Type     string `json:"type"` // 固定 "user_join"
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type UserLeaveMessage struct {
	Type     string `json:"type"` // 固定 "user_leave"
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type CursorUpdateMessage struct {
	Type     string          `json:"type"` // 固定 "cursor_position_update"
	UserID   uint64          `json:"userId"`
	Username string          `json:"username"`
	Position json.RawMessage `json:"position"`
}

type ContentUpdateMessage struct {
	Type     string          `json:"type"` // 固定 "content_change_update"
	UserID   uint64          `json:"userId"`
	Username string          `json:"username"`
	Content  json.RawMessage `json:"content"`
	Delta    json.RawMessage `json:"delta,omitempty"`
}

type SelectionUpdateMessage struct {
	Type      string          `json:"type"` // 固定 "selection_change_update"
	UserID    uint64          `json:"userId"`
	Username  string          `json:"username"`
	Selection json.RawMessage `json:"selection"`
}

// 仅回给请求方：当前房间在线成员
type MembersMessage struct {
	Type    string           `json:"type"` // 固定 "members"
	Members []PresenceMember `json:"members"`
}

// 仅回给请求方：文档当前内容与最新版本号
type ContentLoadMessage struct {
	Type    string          `json:"type"` // 固定 "document_content"
	Content json.RawMessage `json:"content"`
	Version uint64          `json:"version"`
}
