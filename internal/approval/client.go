// Package approval talks to the external approval workflow engine over HTTP.
package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"procurement-flow/internal/core"
)

// Client calls the engine's task endpoints:
//
//	POST {base}/tasks         register a task
//	POST {base}/tasks/cancel  withdraw pending tasks of a subject
//
// Responses carry {"code": 0, "msg": "..."}; a non-zero code is an error.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ core.ApprovalEngine = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type cancelRequest struct {
	SubjectType string `json:"subject_type"`
	SubjectID   int    `json:"subject_id"`
	UserID      int    `json:"user_id,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

func (c *Client) RegisterTask(ctx context.Context, task core.ApprovalTask) error {
	return c.post(ctx, "/tasks", task)
}

func (c *Client) CancelTask(ctx context.Context, subjectType string, subjectID, userID int, comment string) error {
	return c.post(ctx, "/tasks/cancel", cancelRequest{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		UserID:      userID,
		Comment:     comment,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("approval engine %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if result.Code != 0 {
		return fmt.Errorf("approval engine error %d: %s", result.Code, result.Msg)
	}
	return nil
}
