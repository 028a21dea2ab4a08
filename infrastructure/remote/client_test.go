package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/persistencetest"
)

func TestClient_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantNil bool
		wantLen int
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(Payload{Nodes: persistencetest.Forest()})
			},
			wantLen: 1,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "mindmap 数据损坏", http.StatusInternalServerError)
			},
			wantNil: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"nodes": [`))
			},
			wantNil: true,
		},
		{
			name: "missing nodes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c := NewClient(srv.URL+"/", nil)

			// Act
			got := c.Fetch(context.Background())

			// Assert
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestClient_FetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Nil(t, NewClient(url, nil).Fetch(context.Background()))
}

func TestClient_Persist(t *testing.T) {
	// Arrange
	var got Payload
	var method, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	// Act
	NewClient(srv.URL, nil).Persist(context.Background(), persistencetest.Forest())

	// Assert
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, persistencetest.Forest(), got.Nodes)
}

func TestClient_PersistSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	assert.NotPanics(t, func() {
		NewClient(srv.URL, nil).Persist(context.Background(), []aggregates.NodeSnapshot{})
	})
}
