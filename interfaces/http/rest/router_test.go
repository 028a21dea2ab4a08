package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	commandhandlers "github.com/zhaizeyu/smart-mind/application/commands/handlers"
	"github.com/zhaizeyu/smart-mind/application/queries"
	querybus "github.com/zhaizeyu/smart-mind/application/queries/bus"
	queryhandlers "github.com/zhaizeyu/smart-mind/application/queries/handlers"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/infrastructure/cache"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/file"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest"
	"github.com/zhaizeyu/smart-mind/interfaces/http/rest/handlers"
	"github.com/zhaizeyu/smart-mind/pkg/auth"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"github.com/zhaizeyu/smart-mind/pkg/observability"
)

type answererFunc func(ctx context.Context, q string) (string, error)

func (f answererFunc) Answer(ctx context.Context, q string) (string, error) { return f(ctx, q) }

func echoAnswerer() answererFunc {
	return func(_ context.Context, q string) (string, error) { return "re: " + q, nil }
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

// newServer wires the router the way the server does, over an in-memory
// file store
func newServer(t *testing.T, answerer answererFunc, opts ...rest.Option) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	repo, err := file.NewRepository(afero.NewMemMapFs(), "data", logger)
	require.NoError(t, err)
	ws := services.NewWorkspace(repo, nil, logger)

	queryCache := cache.NewInMemoryCache(time.Minute)
	t.Cleanup(queryCache.Close)

	commandBus := bus.NewCommandBus(bus.InvalidationMiddleware(queryCache, querybus.ScopePrefix))
	require.NoError(t, commandhandlers.NewMindMapHandler(ws, logger).Register(commandBus))
	queryBus := querybus.NewQueryBus(querybus.NewCachingMiddleware(queryCache, 30))
	require.NoError(t, queryhandlers.NewMindMapQueryHandler(ws, logger).Register(queryBus))

	router := rest.NewRouter(commandBus, queryBus, answerer, "mindmap", logger, opts...)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string, out interface{}) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthAndReady(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		opts       []rest.Option
		wantStatus int
	}{
		{name: "health", path: "/health", wantStatus: http.StatusOK},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK},
		{
			name:       "not ready",
			path:       "/ready",
			opts:       []rest.Option{rest.WithReadiness(func(context.Context) error { return errors.New("store down") })},
			wantStatus: http.StatusServiceUnavailable,
		},
		{name: "metrics disabled", path: "/metrics", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, echoAnswerer(), tt.opts...)
			resp := do(t, http.MethodGet, srv.URL+tt.path, "", nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestMindMapEndpoints(t *testing.T) {
	// Arrange
	srv := newServer(t, echoAnswerer())

	// Act: a fresh map has the synthesized root
	var initial queries.MindMapView
	resp := do(t, http.MethodGet, srv.URL+"/api/mindmap", "", &initial)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, initial.Nodes, 1)
	require.NotNil(t, initial.SelectedID)
	assert.Equal(t, initial.Nodes[0].ID, *initial.SelectedID)

	// Act: replace the forest
	body := `{"nodes":[{"id":"r","question":"topic","children":[{"id":"c","question":"child","children":[]}]}]}`
	var status map[string]string
	resp = do(t, http.MethodPost, srv.URL+"/api/mindmap", body, &status)

	// Assert
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", status["status"])

	var replaced queries.MindMapView
	do(t, http.MethodGet, srv.URL+"/api/mindmap", "", &replaced)
	require.Len(t, replaced.Nodes, 1)
	assert.Equal(t, "r", replaced.Nodes[0].ID)
	assert.Equal(t, 2, replaced.NodeCount)

	// Act: layout and arrange
	var layout queries.LayoutView
	resp = do(t, http.MethodGet, srv.URL+"/api/mindmap/layout", "", &layout)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, layout, 2)

	var arranged queries.MindMapView
	resp = do(t, http.MethodPost, srv.URL+"/api/mindmap/arrange", "", &arranged)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, layout["c"], arranged.Nodes[0].Children[0].Position)

	// Act: other maps are independent
	var other queries.MindMapView
	do(t, http.MethodGet, srv.URL+"/api/mindmap?map=other", "", &other)
	require.Len(t, other.Nodes, 1)
	assert.NotEqual(t, "r", other.Nodes[0].ID)
}

func TestSaveMindMap_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "malformed", body: `{"nodes":`},
		{name: "missing nodes", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, echoAnswerer())
			resp := do(t, http.MethodPost, srv.URL+"/api/mindmap", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestNodeEndpoints(t *testing.T) {
	// Arrange
	srv := newServer(t, echoAnswerer())
	do(t, http.MethodPost, srv.URL+"/api/mindmap", `{"nodes":[{"id":"r","question":"topic","children":[]}]}`, nil)

	// Act: create
	var created queries.NodeView
	resp := do(t, http.MethodPost, srv.URL+"/api/nodes", `{"parentId":"r","question":"why?"}`, &created)

	// Assert
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "why?", created.Node.Question)
	require.NotNil(t, created.ParentID)
	assert.Equal(t, "r", *created.ParentID)
	id := created.Node.ID

	// Act: update, then read back
	var updated queries.NodeView
	resp = do(t, http.MethodPatch, srv.URL+"/api/nodes/"+id, `{"answer":"because"}`, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, updated.Node.Answer)
	assert.Equal(t, "because", *updated.Node.Answer)

	// Act: move keeps the exact position
	var moved queries.NodeView
	resp = do(t, http.MethodPut, srv.URL+"/api/nodes/"+id+"/position", `{"x":11,"y":22}`, &moved)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11.0, moved.Node.Position.X)
	assert.Equal(t, 22.0, moved.Node.Position.Y)

	// Act: detach, select, summary
	var detached queries.NodeView
	do(t, http.MethodPost, srv.URL+"/api/nodes/"+id+"/reparent", `{}`, &detached)
	assert.True(t, detached.IsRoot)
	assert.Nil(t, detached.ParentID)

	var selected queries.NodeView
	do(t, http.MethodPost, srv.URL+"/api/nodes/r/select", "", &selected)
	assert.True(t, selected.Selected)

	var summary struct {
		Topic   string            `json:"topic"`
		Entries []json.RawMessage `json:"entries"`
	}
	resp = do(t, http.MethodGet, srv.URL+"/api/nodes/"+id+"/summary-request", "", &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "why?", summary.Topic)
	assert.Len(t, summary.Entries, 1)

	// Act: clear selection, delete
	resp = do(t, http.MethodDelete, srv.URL+"/api/selection", "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, http.MethodDelete, srv.URL+"/api/nodes/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Assert
	resp = do(t, http.MethodGet, srv.URL+"/api/nodes/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNodeEndpoints_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{name: "get unknown", method: http.MethodGet, path: "/api/nodes/ghost", wantStatus: http.StatusNotFound},
		{name: "update unknown", method: http.MethodPatch, path: "/api/nodes/ghost", body: `{"question":"q"}`, wantStatus: http.StatusNotFound},
		{name: "delete unknown", method: http.MethodDelete, path: "/api/nodes/ghost", wantStatus: http.StatusNotFound},
		{name: "create under unknown parent", method: http.MethodPost, path: "/api/nodes", body: `{"parentId":"ghost"}`, wantStatus: http.StatusNotFound},
		{name: "move malformed", method: http.MethodPut, path: "/api/nodes/ghost/position", body: `{"x":`, wantStatus: http.StatusBadRequest},
		{name: "summary of unknown", method: http.MethodGet, path: "/api/nodes/ghost/summary-request", wantStatus: http.StatusNotFound},
		{name: "invalid map id", method: http.MethodGet, path: "/api/mindmap?map=../x", wantStatus: http.StatusBadRequest},
		{name: "invalid map id on write", method: http.MethodPost, path: "/api/nodes?map=a%2Fb", body: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, echoAnswerer())
			resp := do(t, tt.method, srv.URL+tt.path, tt.body, nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestAsk(t *testing.T) {
	tests := []struct {
		name       string
		answerer   answererFunc
		opts       []rest.Option
		body       string
		wantStatus int
		wantAnswer string
	}{
		{name: "answered", answerer: echoAnswerer(), body: `{"question":"hi"}`, wantStatus: http.StatusOK, wantAnswer: "re: hi"},
		{name: "empty question", answerer: echoAnswerer(), body: `{"question":""}`, wantStatus: http.StatusBadRequest},
		{name: "no body", answerer: echoAnswerer(), wantStatus: http.StatusBadRequest},
		{
			name: "provider failure",
			answerer: func(context.Context, string) (string, error) {
				return "", errors.New("boom")
			},
			body:       `{"question":"hi"}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "provider timeout",
			answerer: func(context.Context, string) (string, error) {
				return "", context.DeadlineExceeded
			},
			body:       `{"question":"hi"}`,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "rate limited",
			answerer:   echoAnswerer(),
			opts:       []rest.Option{rest.WithAskLimiter(denyAll{})},
			body:       `{"question":"hi"}`,
			wantStatus: http.StatusTooManyRequests,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			srv := newServer(t, tt.answerer, tt.opts...)

			// Act
			var out handlers.AskResponse
			var target interface{}
			if tt.wantStatus == http.StatusOK {
				target = &out
			}
			resp := do(t, http.MethodPost, srv.URL+"/api/ask", tt.body, target)

			// Assert
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantAnswer, out.Answer)
		})
	}
}

func TestAuth(t *testing.T) {
	// Arrange
	secret := "test-secret"
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: secret, Issuer: "smartmind"})
	require.NoError(t, err)
	srv := newServer(t, echoAnswerer(), rest.WithAuth(validator))

	sign := func(claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := sign(jwt.MapClaims{"sub": "u1", "iss": "smartmind", "exp": time.Now().Add(time.Hour).Unix()})
	expired := sign(jwt.MapClaims{"sub": "u1", "iss": "smartmind", "exp": time.Now().Add(-time.Hour).Unix()})

	tests := []struct {
		name       string
		header     string
		path       string
		wantStatus int
	}{
		{name: "health is public", path: "/health", wantStatus: http.StatusOK},
		{name: "missing token", path: "/api/mindmap", wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, path: "/api/mindmap", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", path: "/api/mindmap", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + valid, path: "/api/mindmap", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			req, err := http.NewRequest(http.MethodGet, srv.URL+tt.path, nil)
			require.NoError(t, err)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			// Assert
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestErrorResponses(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "test-secret", Issuer: "smartmind"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		opts       []rest.Option
		method     string
		path       string
		body       string
		wantStatus int
		wantType   pkgerrors.ErrorType
		wantCode   string
	}{
		{name: "unknown route", method: http.MethodGet, path: "/api/nothing", wantStatus: http.StatusNotFound, wantType: pkgerrors.ErrorTypeNotFound},
		{name: "wrong method", method: http.MethodPut, path: "/api/mindmap", wantStatus: http.StatusMethodNotAllowed, wantType: pkgerrors.ErrorTypeValidation},
		{
			name:       "missing token",
			opts:       []rest.Option{rest.WithAuth(validator)},
			method:     http.MethodGet,
			path:       "/api/mindmap",
			wantStatus: http.StatusUnauthorized,
			wantType:   pkgerrors.ErrorTypeUnauthorized,
			wantCode:   "TOKEN_MISSING",
		},
		{
			name:       "rate limited",
			opts:       []rest.Option{rest.WithAskLimiter(denyAll{})},
			method:     http.MethodPost,
			path:       "/api/ask",
			body:       `{"question":"hi"}`,
			wantStatus: http.StatusTooManyRequests,
			wantType:   pkgerrors.ErrorTypeRateLimit,
		},
		{
			name:       "invalid map id",
			method:     http.MethodGet,
			path:       "/api/mindmap?map=../x",
			wantStatus: http.StatusBadRequest,
			wantType:   pkgerrors.ErrorTypeValidation,
			wantCode:   "INVALID_MAP_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			srv := newServer(t, echoAnswerer(), tt.opts...)

			// Act
			var body pkgerrors.ErrorResponse
			resp := do(t, tt.method, srv.URL+tt.path, tt.body, &body)

			// Assert
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.True(t, body.Error)
			assert.Equal(t, string(tt.wantType), body.Type)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	// Arrange
	reg := prometheus.NewRegistry()
	metrics := observability.NewPrometheusMetrics(reg, "smartmind")
	srv := newServer(t, echoAnswerer(), rest.WithMetrics(metrics, reg))
	do(t, http.MethodGet, srv.URL+"/api/mindmap", "", &queries.MindMapView{})

	// Act
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb bytes.Buffer
	_, err = sb.ReadFrom(resp.Body)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, sb.String(), `smartmind_http_requests_total`)
	assert.Contains(t, sb.String(), `route="/api/mindmap`)
}

func TestCORS(t *testing.T) {
	srv := newServer(t, echoAnswerer(), rest.WithCORS("*"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/mindmap", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
