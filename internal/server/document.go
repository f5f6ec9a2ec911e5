package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	documentdomain "github.com/pktdms/docgate/internal/document/domain"
	"github.com/pktdms/docgate/pkg/db/pagination"
)

const uploadFileField = "xmlFile"

// UploadDocument accepts one XML file plus docType and optional docNumber,
// records it exactly once and forwards the content to the workflow. A failed
// dispatch is reported as a warning; the upload itself still succeeds.
func (s *Server) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile(uploadFileField)
	if err != nil {
		AbortWithError(c, documentdomain.ErrMissingFile)
		return
	}

	if fileHeader.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "File too large",
		})
		return
	}
	if !isXMLUpload(fileHeader.Filename, fileHeader.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Only XML files are allowed",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.documentSvc.Submit(c.Request.Context(), documentdomain.SubmitRequest{
		DocType:    c.PostForm("docType"),
		DocNumber:  c.PostForm("docNumber"),
		FileName:   fileHeader.Filename,
		FileBytes:  fileBytes,
		UploadedBy: identityFrom(c).Username,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc := result.Document
	body := gin.H{
		"success": true,
		"message": "File uploaded and sent for processing",
		"document": gin.H{
			"id":               doc.ID.String(),
			"docNumber":        doc.DocNumber,
			"docType":          doc.DocType,
			"fileName":         doc.FileName,
			"status":           doc.Status,
			"processingStatus": doc.ProcessingStatus,
		},
	}
	if result.Warning != "" {
		body["message"] = "File uploaded but workflow processing failed"
		body["warning"] = result.Warning
	}

	c.JSON(http.StatusOK, body)
}

type statusUpdateRequest struct {
	ProcessingStatus string     `json:"processingStatus"`
	ProcessedAt      *time.Time `json:"processedAt"`
	WorkflowID       string     `json:"workflowId"`
}

// UpdateDocumentStatus is the callback consumed from the external workflow.
func (s *Server) UpdateDocumentStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	doc, err := s.documentSvc.Reconcile(c.Request.Context(), c.Param("id"), documentdomain.ReconcileRequest{
		ProcessingStatus: req.ProcessingStatus,
		ProcessedAt:      req.ProcessedAt,
		WorkflowID:       req.WorkflowID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Document status updated",
		"document": doc.ToView(),
	})
}

func (s *Server) ListDocuments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		DocType string `form:"docType"`
		Status  string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, errInvalidRequest)
		return
	}

	result, err := s.documentSvc.List(c.Request.Context(), documentdomain.ListRequest{
		DocType: strings.TrimSpace(query.DocType),
		Status:  strings.TrimSpace(query.Status),
		Page:    query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       result.Documents,
		"pagination": result.PageInfo,
	})
}

func (s *Server) GetDocumentByID(c *gin.Context) {
	doc, err := s.documentSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    doc.ToView(),
	})
}

func isXMLUpload(filename, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".xml") {
		return true
	}
	switch contentType {
	case "text/xml", "application/xml":
		return true
	default:
		return false
	}
}
