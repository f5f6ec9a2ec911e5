package domain

import (
	"context"
	"time"
)

// Payload is the document handed to the external workflow. XMLContent is the
// full file as text; after dispatch the bytes are discarded.
type Payload struct {
	DocumentID string    `json:"documentId"`
	DocType    string    `json:"docType"`
	DocNumber  string    `json:"docNumber"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	XMLContent string    `json:"xmlContent"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy"`
}

// Outcome classifies one dispatch attempt. Timeouts, transport errors and
// non-success responses all collapse into Accepted=false with a reason.
type Outcome struct {
	Accepted   bool
	WorkflowID string
	Reason     string
}

// Dispatcher hands a document payload to the external workflow endpoint.
// Implementations must bound the call with a hard timeout and never hang.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload Payload) Outcome
}
