// Package remote mirrors the local mind map to a SmartMind server over
// GET/POST /api/mindmap. Both directions are best-effort.
package remote

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
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
)

const mindmapPath = "/api/mindmap"

// maxBody caps how much of a response is read
const maxBody = 16 << 20

var _ ports.RemoteStore = (*Client)(nil)

// Payload is the request and response body of /api/mindmap
type Payload struct {
	Nodes []aggregates.NodeSnapshot `json:"nodes"`
}

// Client implements ports.RemoteStore
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the server's forest, or nil on any failure
func (c *Client) Fetch(ctx context.Context) []aggregates.NodeSnapshot {
	nodes, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("Remote fetch failed", zap.String("url", c.baseURL+mindmapPath), zap.Error(err))
		return nil
	}
	return nodes
}

func (c *Client) fetch(ctx context.Context) ([]aggregates.NodeSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+mindmapPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload Payload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.Nodes, nil
}

// Persist posts the forest; failures are logged and dropped
func (c *Client) Persist(ctx context.Context, forest []aggregates.NodeSnapshot) {
	if err := c.persist(ctx, forest); err != nil {
		c.logger.Warn("Remote persist failed", zap.String("url", c.baseURL+mindmapPath), zap.Error(err))
	}
}

func (c *Client) persist(ctx context.Context, forest []aggregates.NodeSnapshot) error {
	if forest == nil {
		forest = []aggregates.NodeSnapshot{}
	}
	body, err := json.Marshal(Payload{Nodes: forest})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+mindmapPath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
