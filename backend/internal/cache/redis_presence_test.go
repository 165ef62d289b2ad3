package cache

import (
	"context"
	"testing"

	redis "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	// 若 Redis 未启动则跳过
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisPresenceCounts(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	docID := "presence-test-doc"
	defer rdb.Del(ctx, countsKey(docID), namesKey(docID))

	p := NewRedisPresence(rdb)

	if err := p.Increment(ctx, docID, 1, "alice"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := p.Increment(ctx, docID, 1, "alice"); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := p.Increment(ctx, docID, 2, "bob"); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	members, err := p.Members(ctx, docID)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Members = %v, want 2", members)
	}
	names := map[uint64]string{}
	for _, m := range members {
		names[m.UserID] = m.Username
	}
	if names[1] != "alice" || names[2] != "bob" {
		t.Fatalf("names = %v", names)
	}

	// 双标签页关一个，alice 仍在线
	if err := p.Decrement(ctx, docID, 1); err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	members, _ = p.Members(ctx, docID)
	if len(members) != 2 {
		t.Fatalf("Members after one decrement = %v, want alice still present", members)
	}

	// 归零即移除，计数和名字一起清理
	_ = p.Decrement(ctx, docID, 1)
	members, _ = p.Members(ctx, docID)
	if len(members) != 1 || members[0].UserID != 2 {
		t.Fatalf("Members = %v, want only bob", members)
	}
	exists, err := rdb.HExists(ctx, namesKey(docID), "1").Result()
	if err != nil || exists {
		t.Fatalf("name entry for alice should be gone (exists=%v err=%v)", exists, err)
	}
}

func TestRedisContentCacheReadThrough(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	docID := "content-test-doc"
	defer rdb.Del(ctx, contentKey(docID))

	c := NewContentCache(rdb)

	fetches := 0
	fetchDB := func() (string, bool, error) {
		fetches++
		return `{"text":"hello"}`, true, nil
	}

	content, found, err := c.GetContent(ctx, docID, fetchDB)
	if err != nil || !found || content != `{"text":"hello"}` {
		t.Fatalf("GetContent = (%q, %v, %v)", content, found, err)
	}
	// 第二次命中缓存，不再回源
	content, found, err = c.GetContent(ctx, docID, fetchDB)
	if err != nil || !found || content != `{"text":"hello"}` {
		t.Fatalf("GetContent = (%q, %v, %v)", content, found, err)
	}
	if fetches != 1 {
		t.Fatalf("fetches = %d, want 1", fetches)
	}

	// 回填后读到新值
	if err := c.SetContent(ctx, docID, `{"text":"world"}`); err != nil {
		t.Fatalf("SetContent: %v", err)
	}
	content, _, _ = c.GetContent(ctx, docID, fetchDB)
	if content != `{"text":"world"}` {
		t.Fatalf("content = %q, want world", content)
	}
}

func TestRedisContentCacheMissingMarker(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	docID := "missing-test-doc"
	defer rdb.Del(ctx, contentKey(docID))

	c := NewContentCache(rdb)

	fetches := 0
	fetchDB := func() (string, bool, error) {
		fetches++
		return "", false, nil
	}

	_, found, err := c.GetContent(ctx, docID, fetchDB)
	if err != nil || found {
		t.Fatalf("GetContent = (found=%v, err=%v), want miss", found, err)
	}
	// 空值标记挡住第二次回源
	_, found, _ = c.GetContent(ctx, docID, fetchDB)
	if found || fetches != 1 {
		t.Fatalf("found=%v fetches=%d, want marker hit without refetch", found, fetches)
	}
}
