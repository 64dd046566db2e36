package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/domain"
)

func TestNewNormalizesAddress(t *testing.T) {
	assert.Equal(t, "http://localhost:8787", New(":8787", 0).BaseURL())
	assert.Equal(t, "http://127.0.0.1:9000", New("127.0.0.1:9000/", 0).BaseURL())
	assert.Equal(t, "https://scope.example", New("https://scope.example", 0).BaseURL())
}

func TestClientRoundTrips(t *testing.T) {
	var running string
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/analyses/an-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.Analysis{ID: "an-1", Name: "demo", RunningTest: running})
	})
	mux.HandleFunc("/analyses/an-1/running", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		running = req.Key
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/analyses/an-1/results", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var in domain.TestResult
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			in.ID = "res-1"
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(in)
			return
		}
		_ = json.NewEncoder(w).Encode([]domain.TestResult{{TestID: "tc1", Status: domain.TestStatusPassed}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL, time.Second)
	require.NoError(t, c.WaitHealth(ctx, time.Second))

	require.NoError(t, c.SetRunning(ctx, "an-1", "s1-tc1"))
	a, err := c.GetAnalysis(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, "s1-tc1", a.RunningTest)

	saved, err := c.PostResult(ctx, "an-1", domain.TestResult{TestID: "tc1", Status: domain.TestStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, "res-1", saved.ID)

	results, err := c.ListResults(ctx, "an-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.TestStatusPassed, results[0].Status)
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"record not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).GetAnalysis(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "record not found")
}
