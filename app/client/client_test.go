package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ChatModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/models", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "llama-3-70b", "name": "Llama 3 70B", "provider": "meta", "context_length": 8192},
			{"id": "mistral-large", "name": "Mistral Large", "provider": "mistral", "context_length": 32768}
		]`))
	}))
	defer ts.Close()

	c := New(ts.URL, "test-token", time.Second)
	models, err := c.ChatModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama-3-70b", models[0].ID)
	assert.Equal(t, "meta", models[0].Provider)
	assert.Equal(t, 32768, models[1].Context)
}

func TestClient_ServerlessEndpoints(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/serverless/endpoints", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": "ep-1", "name": "whisper", "status": "running", "gpu_type": "A100", "region": "sa-east-1"}]`))
	}))
	defer ts.Close()

	c := New(ts.URL, "tkn", time.Second)
	endpoints, err := c.ServerlessEndpoints(context.Background())
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "running", endpoints[0].Status)
	assert.Equal(t, "A100", endpoints[0].GPUType)
}

func TestClient_Metrics(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/metrics/gpu", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"gpu_utilization": 0.42, "machines_total": 12}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "tkn", time.Second)
	metrics, err := c.Metrics(context.Background(), "gpu")
	require.NoError(t, err)
	assert.InEpsilon(t, 0.42, metrics["gpu_utilization"], 0.001)
}

func TestClient_GetBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	c := New(ts.URL, "bad-token", time.Second)
	_, err := c.ChatModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")

	// Get itself reports the status without failing
	status, body, err := c.Get(context.Background(), "/api/v1/chat/models")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(body), "nope")
}

func TestClient_GetRetriesOnConnectionError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			// drop the connection to force a client-side error
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := New(ts.URL, "", time.Second)
	models, err := c.ChatModels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, models)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_WaitReady(t *testing.T) {
	t.Run("ready target", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		c := New(ts.URL, "", time.Second)
		require.NoError(t, c.WaitReady(context.Background(), 2*time.Second))
	})

	t.Run("unreachable target", func(t *testing.T) {
		c := New("http://127.0.0.1:1", "", 100*time.Millisecond)
		err := c.WaitReady(context.Background(), 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready")
	})
}

func TestClient_NoTokenOmitsHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := New(ts.URL, "", time.Second)
	_, err := c.Metrics(context.Background(), "gpu")
	require.NoError(t, err)
}
