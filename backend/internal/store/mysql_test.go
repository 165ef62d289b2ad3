package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"docServer/backend/internal/collab"
)

func newTestMySQL(t *testing.T) *MySQLVersionStore {
	t.Helper()
	dsn := "root:root@tcp(127.0.0.1:3306)/collab_test?charset=utf8mb4&parseTime=True&loc=Local"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	// 若 MySQL 未启动则跳过
	if err != nil {
		t.Skipf("skip: mysql not available: %v", err)
	}
	if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
		t.Skipf("skip: mysql not reachable")
	}
	s := NewMySQLVersionStore(db)
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return s
}

func TestMySQLVersionStore(t *testing.T) {
	s := newTestMySQL(t)
	ctx := context.Background()
	docID := fmt.Sprintf("t-%d", time.Now().UnixNano())

	if _, err := s.GetCurrentContent(ctx, docID); !errors.Is(err, collab.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	if err := s.SetCurrentContent(ctx, docID, "{}"); !errors.Is(err, collab.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}

	if err := s.CreateDocument(ctx, docID, 1, "test doc", `{"text":"seed"}`); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	content, err := s.GetCurrentContent(ctx, docID)
	if err != nil || content != `{"text":"seed"}` {
		t.Fatalf("GetCurrentContent = (%q, %v)", content, err)
	}

	if err := s.SetCurrentContent(ctx, docID, "C1"); err != nil {
		t.Fatalf("SetCurrentContent: %v", err)
	}
	v1, err := s.AppendVersion(ctx, docID, "C1", 1)
	if err != nil || v1 != 1 {
		t.Fatalf("AppendVersion = (%d, %v), want 1", v1, err)
	}
	v2, err := s.AppendVersion(ctx, docID, "C2", 2)
	if err != nil || v2 != 2 {
		t.Fatalf("AppendVersion = (%d, %v), want 2", v2, err)
	}
	if v, _ := s.CurrentVersion(ctx, docID); v != 2 {
		t.Fatalf("CurrentVersion = %d, want 2", v)
	}
}
