package cache

import (
	"context"
	"errors"
	"math/rand"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	contentBaseTTL   = 30 * time.Minute // 基础过期时间
	contentJitter    = 5 * time.Minute  // 随机抖动范围，防止缓存雪崩
	missingMarker    = ""               // 空值标记（合法内容是 JSON，不会是空串）
	missingMarkerTTL = 5 * time.Minute  // 空值标记短 TTL，防止缓存穿透
)

// 获取随机 TTL
func contentTTL() time.Duration {
	return contentBaseTTL + time.Duration(rand.Int63n(int64(contentJitter)))
}

// 文档当前内容的读缓存：Redis + Singleflight 回源保护。
// 实现 collab.ContentCache。
type ContentCache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewContentCache(rdb *redis.Client) *ContentCache {
	return &ContentCache{rdb: rdb}
}

// GetContent：缓存命中直接返回；未命中用 Singleflight 包住回源，
// 同一文档的并发未命中只打到数据库一次。
// found=false 表示文档不存在（含空值标记命中）。
func (c *ContentCache) GetContent(ctx context.Context, docID string, fetchDB func() (string, bool, error)) (string, bool, error) {
	key := contentKey(docID)
	type result struct {
		content string
		found   bool
	}
	val, err, _ := c.sf.Do(key, func() (interface{}, error) {
		cached, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			if cached == missingMarker {
				return result{found: false}, nil
			}
			return result{content: cached, found: true}, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, err
		}

		// 回源 (Redis Miss)，查数据库
		content, exists, err := fetchDB()
		if err != nil {
			return nil, err
		}

		// 填入真实值或者空值标记
		if !exists {
			_ = c.rdb.Set(ctx, key, missingMarker, missingMarkerTTL).Err()
			return result{found: false}, nil
		}
		_ = c.rdb.Set(ctx, key, content, contentTTL()).Err()
		return result{content: content, found: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	r, ok := val.(result)
	if !ok {
		return "", false, errors.New("internal type error")
	}
	return r.content, r.found, nil
}

// SetContent 在内容变更落库后回填缓存
func (c *ContentCache) SetContent(ctx context.Context, docID string, content string) error {
	return c.rdb.Set(ctx, contentKey(docID), content, contentTTL()).Err()
}
