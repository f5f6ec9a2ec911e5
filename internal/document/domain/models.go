package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DocType classifies the business document carried by an upload.
const (
	DocTypeSalesOrder = "SO"
	DocTypeEnterprise = "EN"
	DocTypeShipment   = "SH"
)

// Lifecycle status, set at creation and kept for forward extensibility.
const (
	StatusUploaded = "UPLOADED"
)

// Processing status reported by the external workflow.
const (
	ProcessingPending    = "PENDING"
	ProcessingProcessing = "PROCESSING"
	ProcessingError      = "ERROR"
	ProcessingDone       = "DONE"
)

// Document is the persisted metadata record for one ingested document.
// The raw file bytes are forwarded to the workflow and never stored.
type Document struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	DocNumber        string       `gorm:"column:doc_number;not null;uniqueIndex" json:"doc_number"`
	DocType          string       `gorm:"column:doc_type;not null;index" json:"doc_type"`
	FileName         string       `gorm:"column:file_name;not null" json:"file_name"`
	FileSize         int64        `gorm:"column:file_size;not null" json:"file_size"`
	Status           string       `gorm:"column:status;not null" json:"status"`
	ProcessingStatus string       `gorm:"column:processing_status;not null;index" json:"processing_status"`
	UploadedBy       string       `gorm:"column:uploaded_by;not null" json:"uploaded_by"`
	WorkflowID       *string      `gorm:"column:workflow_id" json:"workflow_id,omitempty"`
	ProcessedAt      *time.Time   `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

func ValidDocType(value string) bool {
	switch value {
	case DocTypeSalesOrder, DocTypeEnterprise, DocTypeShipment:
		return true
	default:
		return false
	}
}

func ValidProcessingStatus(value string) bool {
	switch value {
	case ProcessingPending, ProcessingProcessing, ProcessingError, ProcessingDone:
		return true
	default:
		return false
	}
}

// View is the external representation of a document. Storage column names
// never leak outward; this mapping is the stable naming contract.
type View struct {
	ID               string     `json:"id"`
	DocNumber        string     `json:"docNumber"`
	DocType          string     `json:"docType"`
	FileName         string     `json:"fileName"`
	FileSize         int64      `json:"fileSize"`
	Status           string     `json:"status"`
	ProcessingStatus string     `json:"processingStatus"`
	UploadedBy       string     `json:"uploadedBy"`
	WorkflowID       *string    `json:"workflowId,omitempty"`
	ProcessedAt      *time.Time `json:"processedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (d Document) ToView() View {
	return View{
		ID:               d.ID.String(),
		DocNumber:        d.DocNumber,
		DocType:          d.DocType,
		FileName:         d.FileName,
		FileSize:         d.FileSize,
		Status:           d.Status,
		ProcessingStatus: d.ProcessingStatus,
		UploadedBy:       d.UploadedBy,
		WorkflowID:       d.WorkflowID,
		ProcessedAt:      d.ProcessedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// ExistingRef is the minimal identity of a conflicting record returned to the
// caller on a duplicate docNumber, so no second read is needed.
type ExistingRef struct {
	ID               string    `json:"id"`
	DocNumber        string    `json:"docNumber"`
	DocType          string    `json:"docType"`
	Status           string    `json:"status"`
	ProcessingStatus string    `json:"processingStatus"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (d Document) ToExistingRef() ExistingRef {
	return ExistingRef{
		ID:               d.ID.String(),
		DocNumber:        d.DocNumber,
		DocType:          d.DocType,
		Status:           d.Status,
		ProcessingStatus: d.ProcessingStatus,
		CreatedAt:        d.CreatedAt,
	}
}
