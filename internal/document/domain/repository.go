package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pktdms/docgate/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	DocType string
	Status  string
}

// StatusPatch is a partial update applied to a stored document. Nil fields are
// left untouched; updated_at is always bumped.
type StatusPatch struct {
	ProcessingStatus *string
	WorkflowID       *string
	ProcessedAt      *time.Time
}

type Repository interface {
	// InsertIfAbsent atomically inserts the record, relying on the doc_number
	// unique index as the arbiter. On a collision it returns the conflicting
	// record together with ErrDocumentExists.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, doc *Document) (*Document, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, patch StatusPatch) (*Document, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Document, int64, error)
}
