package collab

import "time"

const EventContentApplied = "CONTENT_APPLIED"

// 发往 Kafka 的文档事件，按 docID 作为分区 key，保证同一文档内事件有序
type DocEvent struct {
	EventType string    `json:"eventType"` // 固定 "CONTENT_APPLIED"
	DocID     string    `json:"docId"`
	Version   uint64    `json:"version"`
	AuthorID  uint64    `json:"authorId"`
	Username  string    `json:"username,omitempty"`
	AppliedAt time.Time `json:"appliedAt"`
}
