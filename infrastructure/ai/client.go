// Package ai talks to model backends. Client is the caller side of the
// ask/summary/generate endpoints; Dispatcher answers /api/ask on the server
// by routing questions to a configured provider.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/ports"
)

const maxResponseBody = 4 << 20

var _ ports.AIService = (*Client)(nil)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type generateResponse struct {
	Questions []struct {
		Question string `json:"question"`
	} `json:"questions"`
}

// Client implements ports.AIService against an HTTP AI backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientHTTP replaces the default HTTP client
func WithClientHTTP(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask sends one question and returns the answer
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	var out askResponse
	if err := c.post(ctx, "/api/ask", askRequest{Question: question}, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

// Summarize asks for a summary of a subtree
func (c *Client) Summarize(ctx context.Context, req ports.SummaryRequest) (string, error) {
	if req.Entries == nil {
		req.Entries = []ports.SummaryEntry{}
	}
	var out summaryResponse
	if err := c.post(ctx, "/api/summary", req, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// GenerateChildren asks for follow-up questions. The count is clamped into
// the accepted range before sending.
func (c *Client) GenerateChildren(ctx context.Context, req ports.GenerateRequest) ([]string, error) {
	req.Count = req.NormalizedCount()
	var out generateResponse
	if err := c.post(ctx, "/api/generate", req, &out); err != nil {
		return nil, err
	}
	questions := make([]string, 0, len(out.Questions))
	for _, q := range out.Questions {
		questions = append(questions, q.Question)
	}
	return questions, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("AI request", zap.String("path", path))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
