package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/edforge/test-session-service/internal/models"
)

// Client is the remote grading collaborator. This service performs no
// local grading; every submitted answer is judged by this contract.
type Client interface {
	Grade(ctx context.Context, req *GradeRequest) (*Result, error)
}

type GradeRequest struct {
	SessionID  string              `json:"session_id"`
	QuestionID uint                `json:"question_id"`
	Kind       models.QuestionKind `json:"kind"`
	Payload    json.RawMessage     `json:"payload"`
}

type Result struct {
	IsCorrect bool    `json:"is_correct"`
	Feedback  *string `json:"feedback,omitempty"`
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPClient creates a grading client against the remote REST API.
func NewHTTPClient(baseURL, apiKey string, logger *slog.Logger) Client {
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *httpClient) Grade(ctx context.Context, req *GradeRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grade request: %w", err)
	}

	url := fmt.Sprintf("%s/grade", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build grade request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("grading request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Grading service returned non-OK status",
			"status_code", resp.StatusCode,
			"session_id", req.SessionID,
			"question_id", req.QuestionID)
		return nil, fmt.Errorf("grading service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode grading result: %w", err)
	}

	return &result, nil
}
