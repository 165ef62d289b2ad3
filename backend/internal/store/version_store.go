package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docServer/backend/internal/collab"
)

// 文档当前态。content 被每次接受的内容变更原地覆盖（last-writer-wins）
type Document struct {
	DocID     string `gorm:"primaryKey;type:varchar(64)"`
	Title     string `gorm:"type:varchar(255)"`
	Content   string `gorm:"type:longtext"`
	OwnerID   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 不可变历史版本，只追加不修改。(doc_id, version) 唯一，version 从 1 起单调递增
type DocumentVersion struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	DocID     string `gorm:"type:varchar(64);uniqueIndex:uk_doc_version,priority:1"`
	Version   uint64 `gorm:"uniqueIndex:uk_doc_version,priority:2"`
	Content   string `gorm:"type:longtext"`
	AuthorID  uint64
	CreatedAt time.Time
}

// MySQL 实现的版本存储，满足 collab.VersionStore
type MySQLVersionStore struct {
	db *gorm.DB
}

func NewMySQLVersionStore(db *gorm.DB) *MySQLVersionStore {
	return &MySQLVersionStore{db: db}
}

// AutoMigrate 建表（documents / document_versions）
func (s *MySQLVersionStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Document{}, &DocumentVersion{})
}

func (s *MySQLVersionStore) GetCurrentContent(ctx context.Context, docID string) (string, error) {
	var doc Document
	err := s.db.WithContext(ctx).Select("content").Where("doc_id = ?", docID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", collab.ErrDocumentNotFound
		}
		return "", err
	}
	return doc.Content, nil
}

func (s *MySQLVersionStore) SetCurrentContent(ctx context.Context, docID string, content string) error {
	res := s.db.WithContext(ctx).Model(&Document{}).Where("doc_id = ?", docID).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return collab.ErrDocumentNotFound
	}
	return nil
}

// AppendVersion 在事务里用文档行锁串行化同一文档的版本分配：
// 版本号 = 既有版本数 + 1，并发追加拿不到相同的号。
func (s *MySQLVersionStore) AppendVersion(ctx context.Context, docID string, content string, authorID uint64) (uint64, error) {
	var version uint64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("doc_id").Where("doc_id = ?", docID).First(&doc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return collab.ErrDocumentNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&DocumentVersion{}).Where("doc_id = ?", docID).Count(&count).Error; err != nil {
			return err
		}
		version = uint64(count) + 1

		return tx.Create(&DocumentVersion{
			DocID:    docID,
			Version:  version,
			Content:  content,
			AuthorID: authorID,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

func (s *MySQLVersionStore) CurrentVersion(ctx context.Context, docID string) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&DocumentVersion{}).Where("doc_id = ?", docID).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return uint64(count), nil
}

// CreateDocument 供建档流程/测试使用；文档 CRUD 的 HTTP 面由外部服务负责
func (s *MySQLVersionStore) CreateDocument(ctx context.Context, docID string, ownerID uint64, title string, content string) error {
	return s.db.WithContext(ctx).Create(&Document{
		DocID:   docID,
		Title:   title,
		Content: content,
		OwnerID: ownerID,
	}).Error
}
