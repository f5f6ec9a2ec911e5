package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/pktdms/docgate/internal/document/domain"
	"github.com/pktdms/docgate/internal/document/repository"
	workflowdomain "github.com/pktdms/docgate/internal/workflow/domain"
	"github.com/pktdms/docgate/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dispatcherStub struct {
	mu      sync.Mutex
	calls   int
	outcome workflowdomain.Outcome
	last    workflowdomain.Payload
}

func (d *dispatcherStub) Dispatch(ctx context.Context, payload workflowdomain.Payload) workflowdomain.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = payload
	return d.outcome
}

func (d *dispatcherStub) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *dispatcherStub) LastPayload() workflowdomain.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupService(t *testing.T, dispatcher workflowdomain.Dispatcher) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(10000)", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&domain.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      mustNode(t),
		Repo:       repository.Provide(),
		Dispatcher: dispatcher,
	})
	return svc, conn
}

func countDocuments(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := conn.Model(&domain.Document{}).Count(&count).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	return count
}

func TestSubmitAcceptedDispatch(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true, WorkflowID: "wf-1"}}
	svc, _ := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeSalesOrder,
		DocNumber:  "SO1001",
		FileName:   "order.xml",
		FileBytes:  []byte("<order/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Warning != "" {
		t.Fatalf("unexpected warning: %q", result.Warning)
	}
	if result.Document.ProcessingStatus != domain.ProcessingProcessing {
		t.Fatalf("expected PROCESSING, got %s", result.Document.ProcessingStatus)
	}
	if result.Document.WorkflowID == nil || *result.Document.WorkflowID != "wf-1" {
		t.Fatalf("expected workflow id wf-1, got %v", result.Document.WorkflowID)
	}

	payload := dispatcher.LastPayload()
	if payload.DocNumber != "SO1001" || payload.XMLContent != "<order/>" {
		t.Fatalf("unexpected dispatch payload: %+v", payload)
	}
	if payload.FileSize != int64(len("<order/>")) {
		t.Fatalf("expected file size %d, got %d", len("<order/>"), payload.FileSize)
	}
}

func TestSubmitDurableWhenDispatchFails(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Reason: "connection refused"}}
	svc, conn := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeShipment,
		DocNumber:  "SH2001",
		FileName:   "shipment.xml",
		FileBytes:  []byte("<shipment/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit must succeed when dispatch fails: %v", err)
	}

	if result.Warning == "" {
		t.Fatalf("expected a dispatch warning")
	}
	if result.Document.ProcessingStatus != domain.ProcessingError {
		t.Fatalf("expected ERROR, got %s", result.Document.ProcessingStatus)
	}
	if count := countDocuments(t, conn); count != 1 {
		t.Fatalf("expected durable record, got %d rows", count)
	}
}

func TestSubmitDuplicateReturnsConflict(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true, WorkflowID: "wf-1"}}
	svc, _ := setupService(t, dispatcher)

	first, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeSalesOrder,
		DocNumber:  "SO1001",
		FileName:   "order.xml",
		FileBytes:  []byte("<order/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeSalesOrder,
		DocNumber:  "SO1001",
		FileName:   "order-again.xml",
		FileBytes:  []byte("<order/>"),
		UploadedBy: "admin",
	})

	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if conflict.Existing.ID != first.Document.ID.String() {
		t.Fatalf("conflict names %s, expected %s", conflict.Existing.ID, first.Document.ID.String())
	}
	if !conflict.Existing.CreatedAt.Equal(first.Document.CreatedAt) {
		t.Fatalf("conflict createdAt mismatch: %v vs %v", conflict.Existing.CreatedAt, first.Document.CreatedAt)
	}
	if calls := dispatcher.Calls(); calls != 1 {
		t.Fatalf("duplicate must not dispatch, got %d calls", calls)
	}
}

func TestSubmitInvalidDocTypeTouchesNothing(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, conn := setupService(t, dispatcher)

	_, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    "XX",
		DocNumber:  "XX1",
		FileName:   "x.xml",
		FileBytes:  []byte("<x/>"),
		UploadedBy: "admin",
	})
	if !errors.Is(err, domain.ErrInvalidDocType) {
		t.Fatalf("expected ErrInvalidDocType, got %v", err)
	}
	if count := countDocuments(t, conn); count != 0 {
		t.Fatalf("store must be untouched, got %d rows", count)
	}
	if dispatcher.Calls() != 0 {
		t.Fatalf("dispatcher must not be called")
	}
}

func TestSubmitGeneratesDocNumber(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeEnterprise,
		FileName:   "ent.xml",
		FileBytes:  []byte("<ent/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.HasPrefix(result.Document.DocNumber, domain.DocTypeEnterprise) {
		t.Fatalf("generated number %q must start with doc type", result.Document.DocNumber)
	}
	if len(result.Document.DocNumber) <= len(domain.DocTypeEnterprise) {
		t.Fatalf("generated number %q has no time component", result.Document.DocNumber)
	}
}

func TestSubmitConcurrentSameDocNumber(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, conn := setupService(t, dispatcher)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), domain.SubmitRequest{
				DocType:    domain.DocTypeSalesOrder,
				DocNumber:  "SO-RACE",
				FileName:   "race.xml",
				FileBytes:  []byte("<race/>"),
				UploadedBy: "admin",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrDocumentExists):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if conflicts != attempts-1 {
		t.Fatalf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
	if count := countDocuments(t, conn); count != 1 {
		t.Fatalf("expected one record, got %d", count)
	}
	if dispatcher.Calls() != 1 {
		t.Fatalf("only the winner may dispatch, got %d calls", dispatcher.Calls())
	}
}

func TestReconcileLastWriteWins(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true, WorkflowID: "wf-2"}}
	svc, _ := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeSalesOrder,
		DocNumber:  "SO3001",
		FileName:   "order.xml",
		FileBytes:  []byte("<order/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	id := result.Document.ID.String()

	if _, err := svc.Reconcile(context.Background(), id, domain.ReconcileRequest{
		ProcessingStatus: domain.ProcessingError,
	}); err != nil {
		t.Fatalf("reconcile ERROR: %v", err)
	}

	doc, err := svc.Reconcile(context.Background(), id, domain.ReconcileRequest{
		ProcessingStatus: domain.ProcessingDone,
	})
	if err != nil {
		t.Fatalf("reconcile DONE: %v", err)
	}

	if doc.ProcessingStatus != domain.ProcessingDone {
		t.Fatalf("expected DONE after ERROR, got %s", doc.ProcessingStatus)
	}
	if doc.ProcessedAt == nil {
		t.Fatalf("processedAt must default to reconciliation time")
	}
}

func TestReconcileExplicitProcessedAt(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeEnterprise,
		DocNumber:  "EN4001",
		FileName:   "ent.xml",
		FileBytes:  []byte("<ent/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	processedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc, err := svc.Reconcile(context.Background(), result.Document.ID.String(), domain.ReconcileRequest{
		ProcessingStatus: domain.ProcessingDone,
		ProcessedAt:      &processedAt,
		WorkflowID:       "wf-late",
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if doc.ProcessedAt == nil || !doc.ProcessedAt.Equal(processedAt) {
		t.Fatalf("expected processedAt %v, got %v", processedAt, doc.ProcessedAt)
	}
	if doc.WorkflowID == nil || *doc.WorkflowID != "wf-late" {
		t.Fatalf("expected workflow id wf-late, got %v", doc.WorkflowID)
	}
}

func TestReconcileUnknownID(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	_, err := svc.Reconcile(context.Background(), snowflake.ID(12345).String(), domain.ReconcileRequest{
		ProcessingStatus: domain.ProcessingDone,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReconcileRejectsUnknownStatus(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	result, err := svc.Submit(context.Background(), domain.SubmitRequest{
		DocType:    domain.DocTypeShipment,
		DocNumber:  "SH5001",
		FileName:   "sh.xml",
		FileBytes:  []byte("<sh/>"),
		UploadedBy: "admin",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = svc.Reconcile(context.Background(), result.Document.ID.String(), domain.ReconcileRequest{
		ProcessingStatus: "FINISHED",
	})
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func seedDocuments(t *testing.T, svc domain.Service, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := svc.Submit(context.Background(), domain.SubmitRequest{
			DocType:    domain.DocTypeSalesOrder,
			DocNumber:  fmt.Sprintf("SO-%s-%d", t.Name(), i),
			FileName:   fmt.Sprintf("doc-%d.xml", i),
			FileBytes:  []byte("<doc/>"),
			UploadedBy: "admin",
		})
		if err != nil {
			t.Fatalf("seed submit %d: %v", i, err)
		}
	}
}

func TestListOutOfRangePage(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)
	seedDocuments(t, svc, 5)

	result, err := svc.List(context.Background(), domain.ListRequest{
		Page: pagination.Pagination{Page: 100, Limit: 10},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(result.Documents) != 0 {
		t.Fatalf("expected empty page, got %d items", len(result.Documents))
	}
	if result.PageInfo.Total != 5 {
		t.Fatalf("expected total 5, got %d", result.PageInfo.Total)
	}
	if result.PageInfo.Pages != 1 {
		t.Fatalf("expected 1 page, got %d", result.PageInfo.Pages)
	}
}

func TestListIdempotent(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)
	seedDocuments(t, svc, 7)

	first, err := svc.List(context.Background(), domain.ListRequest{
		Page: pagination.Pagination{Page: 1, Limit: 5},
	})
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	second, err := svc.List(context.Background(), domain.ListRequest{
		Page: pagination.Pagination{Page: 1, Limit: 5},
	})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}

	if first.PageInfo.Total != second.PageInfo.Total {
		t.Fatalf("totals differ: %d vs %d", first.PageInfo.Total, second.PageInfo.Total)
	}
	if len(first.Documents) != len(second.Documents) {
		t.Fatalf("lengths differ: %d vs %d", len(first.Documents), len(second.Documents))
	}
	for i := range first.Documents {
		if first.Documents[i].ID != second.Documents[i].ID {
			t.Fatalf("item %d differs: %s vs %s", i, first.Documents[i].ID, second.Documents[i].ID)
		}
	}
}

func TestListFilterByDocType(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	for i, docType := range []string{domain.DocTypeSalesOrder, domain.DocTypeEnterprise, domain.DocTypeSalesOrder} {
		_, err := svc.Submit(context.Background(), domain.SubmitRequest{
			DocType:    docType,
			DocNumber:  fmt.Sprintf("%s-F%d", docType, i),
			FileName:   "f.xml",
			FileBytes:  []byte("<f/>"),
			UploadedBy: "admin",
		})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	result, err := svc.List(context.Background(), domain.ListRequest{
		DocType: domain.DocTypeSalesOrder,
		Page:    pagination.Pagination{Page: 1, Limit: 10},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if result.PageInfo.Total != 2 {
		t.Fatalf("expected total 2, got %d", result.PageInfo.Total)
	}
	for _, doc := range result.Documents {
		if doc.DocType != domain.DocTypeSalesOrder {
			t.Fatalf("filter leaked doc type %s", doc.DocType)
		}
	}
}

func TestGetByIDNotFound(t *testing.T) {
	dispatcher := &dispatcherStub{outcome: workflowdomain.Outcome{Accepted: true}}
	svc, _ := setupService(t, dispatcher)

	_, err := svc.GetByID(context.Background(), snowflake.ID(999).String())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
