package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pktdms/docgate/pkg/db/pagination"
)

var (
	ErrInvalidDocType = errors.New("invalid_doc_type")
	ErrInvalidStatus  = errors.New("invalid_processing_status")
	ErrInvalidID      = errors.New("invalid_id")
	ErrMissingFile    = errors.New("missing_file")
	ErrDocumentExists = errors.New("document_exists")
	ErrNotFound       = errors.New("not_found")
)

// ConflictError carries the identity of the record that already owns the
// docNumber, so callers can report the collision without a second read.
type ConflictError struct {
	Existing ExistingRef
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s already exists", e.Existing.DocNumber)
}

func (e *ConflictError) Unwrap() error { return ErrDocumentExists }

type SubmitRequest struct {
	DocType    string
	DocNumber  string
	FileName   string
	FileBytes  []byte
	UploadedBy string
}

// SubmitResult reports a durable intake. Warning is set when the workflow
// dispatch failed; the upload itself still succeeded.
type SubmitResult struct {
	Document Document
	Warning  string
}

type ReconcileRequest struct {
	ProcessingStatus string
	ProcessedAt      *time.Time
	WorkflowID       string
}

type ListRequest struct {
	DocType string
	Status  string
	Page    pagination.Pagination
}

type ListResult struct {
	Documents []View
	PageInfo  pagination.PageInfo
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
	Reconcile(ctx context.Context, id string, req ReconcileRequest) (Document, error)
	List(ctx context.Context, req ListRequest) (ListResult, error)
	GetByID(ctx context.Context, id string) (Document, error)
}
