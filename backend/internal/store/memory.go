package store

import (
	"context"
	"sync"

	"docServer/backend/internal/collab"
)

// 内存实现：单测 / 本地开发用，不依赖 MySQL。
// 每个文档一把锁，版本分配天然按文档串行。
type MemoryVersionStore struct {
	mu   sync.RWMutex
	docs map[string]*memDoc
}

type memDoc struct {
	mu       sync.Mutex
	content  string
	versions []memVersion
}

type memVersion struct {
	version  uint64
	content  string
	authorID uint64
}

func NewMemoryVersionStore() *MemoryVersionStore {
	return &MemoryVersionStore{docs: make(map[string]*memDoc)}
}

// CreateDocument 预置一篇文档（文档创建的对外接口由外部服务负责）
func (s *MemoryVersionStore) CreateDocument(docID string, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[docID]; !ok {
		s.docs[docID] = &memDoc{content: content}
	}
}

func (s *MemoryVersionStore) getDoc(docID string) *memDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[docID]
}

func (s *MemoryVersionStore) GetCurrentContent(ctx context.Context, docID string) (string, error) {
	d := s.getDoc(docID)
	if d == nil {
		return "", collab.ErrDocumentNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content, nil
}

func (s *MemoryVersionStore) SetCurrentContent(ctx context.Context, docID string, content string) error {
	d := s.getDoc(docID)
	if d == nil {
		return collab.ErrDocumentNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = content
	return nil
}

func (s *MemoryVersionStore) AppendVersion(ctx context.Context, docID string, content string, authorID uint64) (uint64, error) {
	d := s.getDoc(docID)
	if d == nil {
		return 0, collab.ErrDocumentNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	version := uint64(len(d.versions)) + 1
	d.versions = append(d.versions, memVersion{version: version, content: content, authorID: authorID})
	return version, nil
}

func (s *MemoryVersionStore) CurrentVersion(ctx context.Context, docID string) (uint64, error) {
	d := s.getDoc(docID)
	if d == nil {
		return 0, collab.ErrDocumentNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.versions)), nil
}

// Versions 返回某文档的全部历史版本内容（按版本号升序），供测试断言
func (s *MemoryVersionStore) Versions(docID string) []string {
	d := s.getDoc(docID)
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.versions))
	for i, v := range d.versions {
		out[i] = v.content
	}
	return out
}
