package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pktdms/docgate/internal/document/domain"
	workflowdomain "github.com/pktdms/docgate/internal/workflow/domain"
	"github.com/pktdms/docgate/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Dispatcher workflowdomain.Dispatcher
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	dispatcher workflowdomain.Dispatcher
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("document.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
	}
}

// Submit records one uploaded document exactly once and hands its content to
// the external workflow. The record is durable before dispatch starts, so a
// dead workflow endpoint degrades the result to a warning instead of failing
// the upload.
func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.SubmitResult, error) {
	docType := strings.TrimSpace(req.DocType)
	if !domain.ValidDocType(docType) {
		return domain.SubmitResult{}, domain.ErrInvalidDocType
	}
	if len(req.FileBytes) == 0 {
		return domain.SubmitResult{}, domain.ErrMissingFile
	}

	docNumber := strings.TrimSpace(req.DocNumber)
	if docNumber == "" {
		docNumber = generateDocNumber(docType)
	}

	now := time.Now().UTC()
	doc := domain.Document{
		ID:               s.genID.Generate(),
		DocNumber:        docNumber,
		DocType:          docType,
		FileName:         req.FileName,
		FileSize:         int64(len(req.FileBytes)),
		Status:           domain.StatusUploaded,
		ProcessingStatus: domain.ProcessingPending,
		UploadedBy:       req.UploadedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, s.db, &doc)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentExists) && inserted != nil {
			return domain.SubmitResult{}, &domain.ConflictError{Existing: inserted.ToExistingRef()}
		}
		return domain.SubmitResult{}, err
	}

	s.log.Info("document recorded",
		zap.String("id", doc.ID.String()),
		zap.String("doc_number", doc.DocNumber),
		zap.String("doc_type", doc.DocType),
	)

	outcome := s.dispatcher.Dispatch(ctx, workflowdomain.Payload{
		DocumentID: doc.ID.String(),
		DocType:    doc.DocType,
		DocNumber:  doc.DocNumber,
		FileName:   doc.FileName,
		FileSize:   doc.FileSize,
		XMLContent: string(req.FileBytes),
		UploadedAt: doc.CreatedAt,
		UploadedBy: doc.UploadedBy,
	})

	patch := domain.StatusPatch{}
	warning := ""
	if outcome.Accepted {
		status := domain.ProcessingProcessing
		patch.ProcessingStatus = &status
		if outcome.WorkflowID != "" {
			patch.WorkflowID = &outcome.WorkflowID
		}
	} else {
		status := domain.ProcessingError
		patch.ProcessingStatus = &status
		warning = "workflow processing unavailable"
		s.log.Warn("workflow dispatch failed",
			zap.String("id", doc.ID.String()),
			zap.String("reason", outcome.Reason),
		)
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, doc.ID, patch)
	if err != nil {
		// The intake itself is durable; report the record as inserted.
		s.log.Error("post-dispatch status update failed",
			zap.String("id", doc.ID.String()),
			zap.Error(err),
		)
		return domain.SubmitResult{Document: doc, Warning: warning}, nil
	}

	return domain.SubmitResult{Document: *updated, Warning: warning}, nil
}

// Reconcile applies an asynchronous status callback from the workflow.
// Last write wins; transition legality is not enforced.
func (s *Service) Reconcile(ctx context.Context, id string, req domain.ReconcileRequest) (domain.Document, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.Document{}, err
	}

	status := strings.TrimSpace(req.ProcessingStatus)
	if !domain.ValidProcessingStatus(status) {
		return domain.Document{}, domain.ErrInvalidStatus
	}

	processedAt := time.Now().UTC()
	if req.ProcessedAt != nil {
		processedAt = req.ProcessedAt.UTC()
	}

	patch := domain.StatusPatch{
		ProcessingStatus: &status,
		ProcessedAt:      &processedAt,
	}
	if wf := strings.TrimSpace(req.WorkflowID); wf != "" {
		patch.WorkflowID = &wf
	}

	updated, err := s.repo.UpdateStatus(ctx, s.db, docID, patch)
	if err != nil {
		return domain.Document{}, err
	}

	s.log.Info("document reconciled",
		zap.String("id", id),
		zap.String("processing_status", status),
	)

	return *updated, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResult, error) {
	filter := domain.ListFilter{
		DocType: strings.TrimSpace(req.DocType),
		Status:  strings.TrimSpace(req.Status),
	}

	docs, total, err := s.repo.List(ctx, s.db, filter, req.Page)
	if err != nil {
		return domain.ListResult{}, err
	}

	views := make([]domain.View, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		views = append(views, doc.ToView())
	}

	return domain.ListResult{
		Documents: views,
		PageInfo:  pagination.BuildPageInfo(req.Page, total),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Document, error) {
	docID, err := parseID(id)
	if err != nil {
		return domain.Document{}, err
	}

	doc, err := s.repo.FindByID(ctx, s.db, docID)
	if err != nil {
		return domain.Document{}, err
	}
	if doc == nil {
		return domain.Document{}, domain.ErrNotFound
	}
	return *doc, nil
}

// generateDocNumber builds a fallback number from the type and current time.
// Two generations within the same millisecond collide and the loser is
// rejected as a duplicate, matching the documented intake behavior.
func generateDocNumber(docType string) string {
	return fmt.Sprintf("%s%d", docType, time.Now().UnixMilli())
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
