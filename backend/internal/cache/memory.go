package cache

import (
	"context"
	"sync"
)

// 进程内实现：单机部署 / 本地开发用，不依赖 Redis。
// 语义与 redisPresence 一致（按连接数计数，归零才移除）。
type memoryPresence struct {
	mu    sync.Mutex
	rooms map[string]map[uint64]*memberEntry
}

type memberEntry struct {
	count    int
	username string
}

func NewMemoryPresence() PresenceRegistry {
	return &memoryPresence{rooms: make(map[string]map[uint64]*memberEntry)}
}

func (p *memoryPresence) Increment(ctx context.Context, docID string, userID uint64, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.rooms[docID]
	if room == nil {
		room = make(map[uint64]*memberEntry)
		p.rooms[docID] = room
	}
	e := room[userID]
	if e == nil {
		e = &memberEntry{}
		room[userID] = e
	}
	e.count++
	e.username = username
	return nil
}

func (p *memoryPresence) Decrement(ctx context.Context, docID string, userID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.rooms[docID]
	if room == nil {
		return nil
	}
	e := room[userID]
	if e == nil {
		return nil
	}
	e.count--
	if e.count <= 0 {
		delete(room, userID)
		if len(room) == 0 {
			delete(p.rooms, docID)
		}
	}
	return nil
}

func (p *memoryPresence) Members(ctx context.Context, docID string) ([]PresenceMember, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	room := p.rooms[docID]
	if len(room) == 0 {
		return nil, nil
	}
	members := make([]PresenceMember, 0, len(room))
	for uid, e := range room {
		members = append(members, PresenceMember{UserID: uid, Username: e.username})
	}
	return members, nil
}
