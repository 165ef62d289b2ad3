package cache

import (
	"context"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

// PresenceRegistry 记录某文档当前有哪些用户在线。
// 同一用户可以开多个标签页，所以按 (docID, userID) 记连接数而不是集合：
// 只有计数归零才算离线，第二个标签页断开不会把还开着的第一个踢下线。
// Increment/Decrement 必须在并发调用下保持原子。
type PresenceRegistry interface {
	Increment(ctx context.Context, docID string, userID uint64, username string) error
	Decrement(ctx context.Context, docID string, userID uint64) error
	Members(ctx context.Context, docID string) ([]PresenceMember, error)
}

type PresenceMember struct {
	UserID   uint64
	Username string
}

// 具体实现：基于 redis 的 PresenceRegistry，可被多个进程共享
type redisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) PresenceRegistry {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) Increment(ctx context.Context, docID string, userID uint64, username string) error {
	// HINCRBY 本身原子；名字表跟着一起写
	tx := p.rdb.TxPipeline()
	tx.HIncrBy(ctx, countsKey(docID), strconv.FormatUint(userID, 10), 1)
	tx.HSet(ctx, namesKey(docID), strconv.FormatUint(userID, 10), username)
	_, err := tx.Exec(ctx)
	return err
}

func (p *redisPresence) Decrement(ctx context.Context, docID string, userID uint64) error {
	// 减一并在归零时清掉计数和名字，必须一步完成，否则两个标签页
	// 同时断开会留下脏条目或者误删还在线的用户
	luaScript := `
	-- KEYS[1] = countsKey(docID)
	-- KEYS[2] = namesKey(docID)
	-- ARGV[1] = userID

	local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
	if n <= 0 then
		redis.call("HDEL", KEYS[1], ARGV[1])
		redis.call("HDEL", KEYS[2], ARGV[1])
	end
	return n
	`
	script := redis.NewScript(luaScript)
	err := script.Run(ctx, p.rdb, []string{countsKey(docID), namesKey(docID)}, userID).Err()
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (p *redisPresence) Members(ctx context.Context, docID string) ([]PresenceMember, error) {
	counts, err := p.rdb.HGetAll(ctx, countsKey(docID)).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(counts) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(counts))
	ids := make([]uint64, 0, len(counts))
	for field, raw := range counts {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		uid, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		fields = append(fields, field)
		ids = append(ids, uid)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// 批量获取名字
	names, err := p.rdb.HMGet(ctx, namesKey(docID), fields...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	members := make([]PresenceMember, 0, len(ids))
	for i, v := range names {
		name := ""
		if v != nil {
			name, _ = v.(string)
		}
		members = append(members, PresenceMember{UserID: ids[i], Username: name})
	}
	return members, nil
}
