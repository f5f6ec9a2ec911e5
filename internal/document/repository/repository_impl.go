package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pktdms/docgate/internal/document/domain"
	"github.com/pktdms/docgate/pkg/db"
	"github.com/pktdms/docgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, doc *domain.Document) (*domain.Document, error) {
	err := conn.WithContext(ctx).Create(doc).Error
	if err == nil {
		return doc, nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return nil, err
	}

	// The unique index won; load the winner so the caller can report it.
	var existing domain.Document
	findErr := conn.WithContext(ctx).
		Where("doc_number = ?", doc.DocNumber).
		First(&existing).Error
	if findErr != nil {
		return nil, err
	}
	return &existing, domain.ErrDocumentExists
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, patch domain.StatusPatch) (*domain.Document, error) {
	fields := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if patch.ProcessingStatus != nil {
		fields["processing_status"] = *patch.ProcessingStatus
	}
	if patch.WorkflowID != nil {
		fields["workflow_id"] = *patch.WorkflowID
	}
	if patch.ProcessedAt != nil {
		fields["processed_at"] = *patch.ProcessedAt
	}

	res := conn.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}

	return r.FindByID(ctx, conn, id)
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	var doc domain.Document
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Document, int64, error) {
	applyFilter := func(stmt *gorm.DB) *gorm.DB {
		if filter.DocType != "" {
			stmt = stmt.Where("doc_type = ?", filter.DocType)
		}
		if filter.Status != "" {
			stmt = stmt.Where("status = ?", filter.Status)
		}
		return stmt
	}

	var total int64
	if err := applyFilter(conn.WithContext(ctx).Model(&domain.Document{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []*domain.Document
	err := applyFilter(conn.WithContext(ctx).Model(&domain.Document{})).
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Normalize().Limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}
