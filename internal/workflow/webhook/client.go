package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pktdms/docgate/internal/config"
	"github.com/pktdms/docgate/internal/workflow/domain"
	"go.uber.org/zap"
)

const sourceHeader = "document-upload"

type acknowledgement struct {
	WorkflowID string `json:"workflowId"`
}

// Client posts document payloads to the configured workflow webhook.
type Client struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	timeout := cfg.WorkflowTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		url:     strings.TrimSpace(cfg.WorkflowWebhookURL),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("workflow.webhook"),
	}
}

func (c *Client) Dispatch(ctx context.Context, payload domain.Payload) domain.Outcome {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Outcome{Reason: fmt.Sprintf("encode payload: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.Outcome{Reason: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PKT-Source", sourceHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("workflow dispatch failed",
			zap.String("document_id", payload.DocumentID),
			zap.Error(err),
		)
		return domain.Outcome{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn("workflow rejected dispatch",
			zap.String("document_id", payload.DocumentID),
			zap.Int("status", resp.StatusCode),
		)
		return domain.Outcome{Reason: fmt.Sprintf("workflow responded %d", resp.StatusCode)}
	}

	var ack acknowledgement
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ack); err != nil {
		// A success response without a parsable body still counts as accepted.
		return domain.Outcome{Accepted: true}
	}

	return domain.Outcome{Accepted: true, WorkflowID: strings.TrimSpace(ack.WorkflowID)}
}
