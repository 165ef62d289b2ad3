package collab

import (
	"context"
	"errors"
	"log"
	"time"
)

// 版本存储接口
// 只声明，实现在 store 中。AppendVersion 必须对同一 docID 串行：
// 两个并发的内容变更不能拿到相同的版本号（版本号从 1 开始，逐次 +1）。
type VersionStore interface {
	GetCurrentContent(ctx context.Context, docID string) (string, error)
	SetCurrentContent(ctx context.Context, docID string, content string) error
	AppendVersion(ctx context.Context, docID string, content string, authorID uint64) (uint64, error)
	CurrentVersion(ctx context.Context, docID string) (uint64, error)
}

// 内容读缓存接口，实现在 cache 中。fetchDB 在缓存未命中时回源。
type ContentCache interface {
	GetContent(ctx context.Context, docID string, fetchDB func() (string, bool, error)) (string, bool, error)
	SetContent(ctx context.Context, docID string, content string) error
}

// 事件分发接口（Kafka），实现见 kafka_dispatcher.go
type EventDispatcher interface {
	Enqueue(ctx context.Context, evt DocEvent) error
}

var ErrDocumentNotFound = errors.New("DOCUMENT_NOT_FOUND")

// 协作引擎接口
type Service interface {
	// ApplyContentChange 先落库（覆盖当前内容 + 追加不可变版本，二者是一个整体），
	// 成功后才允许调用方广播；任一步失败则整个请求失败，不得广播。
	// 返回本次分配的版本号。
	ApplyContentChange(ctx context.Context, docID string, authorID uint64, username string, content string) (uint64, error)

	// CurrentContent 返回文档当前内容与最新版本号；文档不存在返回 ErrDocumentNotFound
	CurrentContent(ctx context.Context, docID string) (string, uint64, error)
}

type DocService struct {
	// 依赖注入
	store      VersionStore
	contentCch ContentCache
	dispatcher EventDispatcher
}

// NewDocService 返回一个满足 Service 接口的实例。
// cache 与 dispatcher 允许为 nil（单测 / 降级运行）。
func NewDocService(store VersionStore, cch ContentCache, dispatcher EventDispatcher) *DocService {
	return &DocService{store: store, contentCch: cch, dispatcher: dispatcher}
}

func (s *DocService) ApplyContentChange(ctx context.Context, docID string, authorID uint64, username string, content string) (uint64, error) {
	if s.store == nil {
		return 0, errors.New("version store not initialized")
	}

	// 持久化顺序固定：先更新当前内容，再追加版本。任一失败都向上抛，
	// 调用方据此决定不广播（崩溃窗口内不会出现"已广播未落库"的内容）。
	if err := s.store.SetCurrentContent(ctx, docID, content); err != nil {
		return 0, err
	}
	version, err := s.store.AppendVersion(ctx, docID, content, authorID)
	if err != nil {
		return 0, err
	}

	// 缓存回填为尽力而为，失败只打日志，不影响本次请求
	if s.contentCch != nil {
		if err := s.contentCch.SetContent(ctx, docID, content); err != nil {
			log.Printf("content cache set failed (doc=%s): %v", docID, err)
		}
	}

	// 异步事件分发同样不阻塞、不回传失败
	if s.dispatcher != nil {
		evt := DocEvent{
			EventType: EventContentApplied,
			DocID:     docID,
			Version:   version,
			AuthorID:  authorID,
			Username:  username,
			AppliedAt: time.Now(),
		}
		if err := s.dispatcher.Enqueue(ctx, evt); err != nil {
			log.Printf("doc event enqueue failed (doc=%s v=%d): %v", docID, version, err)
		}
	}

	return version, nil
}

func (s *DocService) CurrentContent(ctx context.Context, docID string) (string, uint64, error) {
	if s.store == nil {
		return "", 0, errors.New("version store not initialized")
	}

	fetchDB := func() (string, bool, error) {
		content, err := s.store.GetCurrentContent(ctx, docID)
		if errors.Is(err, ErrDocumentNotFound) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		return content, true, nil
	}

	var (
		content string
		found   bool
		err     error
	)
	if s.contentCch != nil {
		content, found, err = s.contentCch.GetContent(ctx, docID, fetchDB)
	} else {
		content, found, err = fetchDB()
	}
	if err != nil {
		return "", 0, err
	}
	if !found {
		return "", 0, ErrDocumentNotFound
	}

	version, err := s.store.CurrentVersion(ctx, docID)
	if err != nil {
		return "", 0, err
	}
	return content, version, nil
}
