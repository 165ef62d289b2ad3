package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"docServer/backend/internal/collab"
)

func TestMemoryVersionStoreBasics(t *testing.T) {
	s := NewMemoryVersionStore()
	ctx := context.Background()

	// 文档不存在
	if _, err := s.GetCurrentContent(ctx, "nope"); !errors.Is(err, collab.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	if err := s.SetCurrentContent(ctx, "nope", "{}"); !errors.Is(err, collab.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	if _, err := s.AppendVersion(ctx, "nope", "{}", 1); !errors.Is(err, collab.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}

	s.CreateDocument("doc1", `{"text":"seed"}`)
	content, err := s.GetCurrentContent(ctx, "doc1")
	if err != nil || content != `{"text":"seed"}` {
		t.Fatalf("GetCurrentContent = (%q, %v)", content, err)
	}
	if v, _ := s.CurrentVersion(ctx, "doc1"); v != 0 {
		t.Fatalf("CurrentVersion = %d, want 0", v)
	}

	// C1 然后 C2：版本 1、2，当前内容是 C2
	if err := s.SetCurrentContent(ctx, "doc1", "C1"); err != nil {
		t.Fatalf("SetCurrentContent: %v", err)
	}
	v1, err := s.AppendVersion(ctx, "doc1", "C1", 7)
	if err != nil || v1 != 1 {
		t.Fatalf("AppendVersion = (%d, %v), want 1", v1, err)
	}
	_ = s.SetCurrentContent(ctx, "doc1", "C2")
	v2, _ := s.AppendVersion(ctx, "doc1", "C2", 7)
	if v2 != 2 {
		t.Fatalf("AppendVersion = %d, want 2", v2)
	}

	content, _ = s.GetCurrentContent(ctx, "doc1")
	if content != "C2" {
		t.Fatalf("current = %q, want C2", content)
	}
	versions := s.Versions("doc1")
	if len(versions) != 2 || versions[0] != "C1" || versions[1] != "C2" {
		t.Fatalf("versions = %v, want [C1 C2]", versions)
	}
}

// 并发追加不允许出现重复版本号
func TestMemoryVersionStoreConcurrentAppend(t *testing.T) {
	s := NewMemoryVersionStore()
	s.CreateDocument("doc1", "{}")
	ctx := context.Background()

	const n = 64
	seen := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.AppendVersion(ctx, "doc1", "{}", 1)
			if err != nil {
				t.Errorf("AppendVersion: %v", err)
				return
			}
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	got := make(map[uint64]bool)
	for v := range seen {
		if got[v] {
			t.Fatalf("duplicate version %d", v)
		}
		got[v] = true
	}
	if len(got) != n {
		t.Fatalf("assigned %d distinct versions, want %d", len(got), n)
	}
	for v := uint64(1); v <= n; v++ {
		if !got[v] {
			t.Fatalf("missing version %d", v)
		}
	}
}
