package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/ports"
)

func TestClient_Ask(t *testing.T) {
	// Arrange
	var got askRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ask", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"answer":"42"}`))
	}))
	defer srv.Close()
	c := NewClient(srv.URL+"/", zap.NewNop())

	// Act
	answer, err := c.Ask(context.Background(), "meaning?")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
	assert.Equal(t, "meaning?", got.Question)
}

func TestClient_Summarize(t *testing.T) {
	// Arrange
	var raw map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/summary", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"summary":"short"}`))
	}))
	defer srv.Close()
	answer := "a"
	req := ports.SummaryRequest{
		Topic: "topic",
		Entries: []ports.SummaryEntry{
			{Question: "topic", Depth: 0},
			{Question: "child", Answer: &answer, Depth: 1},
		},
	}

	// Act
	summary, err := NewClient(srv.URL, nil).Summarize(context.Background(), req)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "short", summary)
	assert.Equal(t, "topic", raw["topic"])
	entries := raw["entries"].([]interface{})
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].(map[string]interface{}), "answer")
	assert.Equal(t, "a", entries[1].(map[string]interface{})["answer"])
	assert.Equal(t, float64(1), entries[1].(map[string]interface{})["depth"])
}

func TestClient_GenerateChildren(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		wantCount int
	}{
		{name: "default", count: 0, wantCount: 2},
		{name: "in range", count: 4, wantCount: 4},
		{name: "too many", count: 9, wantCount: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			var got ports.GenerateRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/generate", r.URL.Path)
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = w.Write([]byte(`{"questions":[{"question":"q1"},{"question":"q2"}]}`))
			}))
			defer srv.Close()

			// Act
			questions, err := NewClient(srv.URL, nil).GenerateChildren(context.Background(),
				ports.GenerateRequest{Topic: "t", Answer: "a", Count: tt.count})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, []string{"q1", "q2"}, questions)
			assert.Equal(t, tt.wantCount, got.Count)
			assert.Equal(t, "t", got.Topic)
		})
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"answer":`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(srv.URL, nil).Ask(context.Background(), "q")

			assert.Error(t, err)
		})
	}
}
