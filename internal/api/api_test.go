package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentscope/internal/config"
	"agentscope/internal/domain"
	"agentscope/internal/fs"
	"agentscope/internal/layout"
	sqlitestore "agentscope/internal/store/sqlite"
)

const analysisBody = `{
  "id": "an-1",
  "name": "support",
  "agent_data": {
    "agents": [
      {"id": "triage", "name": "Triage", "tools": [{"name": "lookup"}], "model_config": {"model": "gpt-4o"}},
      {"id": "resolver", "name": "Resolver"}
    ],
    "tools": [{"id": "lookup", "name": "lookup"}],
    "relationships": [{"id": "r1", "from_agent_id": "triage", "to_agent_id": "resolver", "type": "calls"}]
  },
  "test_cases": [
    {"id": "tc1", "session_id": "s1", "name": "routes refunds", "highlight_elements": ["triage"]}
  ]
}`

type harness struct {
	server *httptest.Server
	store  *sqlitestore.Store
	root   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlitestore.Open(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	root := filepath.Join(dir, "exports")
	gw, err := fs.NewGateway(root, store)
	require.NoError(t, err)

	cfg, err := config.Load(writeEmptyConfig(t, dir))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(cfg, store, gw, logger).Handler())
	t.Cleanup(srv.Close)
	return &harness{server: srv, store: store, root: root}
}

func writeEmptyConfig(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(p, []byte("[server]\naddr = \":0\"\n"), 0o644))
	return p
}

func (h *harness) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthAndConfig(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	resp, body = h.do(t, http.MethodGet, "/config", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `":0"`)
}

func TestAnalysisLifecycle(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/analyses", analysisBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = h.do(t, http.MethodGet, "/analyses/an-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a domain.Analysis
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Equal(t, domain.NameList{"lookup"}, a.Data.Agents[0].Tools)

	resp, _ = h.do(t, http.MethodGet, "/analyses/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/analyses", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodDelete, "/analyses", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/analyses", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Analysis
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)
}

func TestResultsAndRunning(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/analyses", analysisBody)

	resp, _ := h.do(t, http.MethodPost, "/analyses/an-1/running", `{"key":"s1-tc1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/analyses/an-1/scene", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"running"`)

	resp, _ = h.do(t, http.MethodPost, "/analyses/an-1/results", `{"status":"passed"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/analyses/an-1/results", `{"test_id":"tc1","session_id":"s1","status":"failed"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = h.do(t, http.MethodPost, "/analyses/missing/results", `{"test_id":"tc1","status":"failed"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/analyses/an-1/results", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []domain.TestResult
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 1)
	assert.Equal(t, domain.TestStatusFailed, results[0].Status)

	a, err := h.store.GetAnalysis(context.Background(), "an-1")
	require.NoError(t, err)
	assert.Empty(t, a.RunningTest, "the result clears the running marker")
}

func TestSceneReflectsResultsAndView(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/analyses", analysisBody)
	h.do(t, http.MethodPost, "/analyses/an-1/results", `{"test_id":"tc1","session_id":"s1","status":"failed"}`)

	resp, body := h.do(t, http.MethodGet, "/analyses/an-1/scene?width=900&height=600&cost=100", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap struct {
		Frame struct {
			Width float64 `json:"width"`
			Nodes []struct {
				ID    string `json:"id"`
				Style string `json:"style"`
			} `json:"nodes"`
			Edges []struct {
				ID    string `json:"id"`
				Color string `json:"color"`
			} `json:"edges"`
		} `json:"frame"`
		Metrics struct {
			Multipliers struct {
				CostOptimization float64 `json:"cost_optimization"`
			} `json:"multipliers"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, 900.0, snap.Frame.Width)
	assert.Len(t, snap.Frame.Nodes, 4)
	assert.InDelta(t, 0.5, snap.Metrics.Multipliers.CostOptimization, 1e-9)

	styles := map[string]string{}
	for _, n := range snap.Frame.Nodes {
		styles[n.ID] = n.Style
	}
	assert.Equal(t, "error", styles["triage"])

	var testEdge string
	for _, e := range snap.Frame.Edges {
		if strings.HasPrefix(e.ID, "tt:") {
			testEdge = e.Color
		}
	}
	assert.Equal(t, layout.ColorFail, testEdge)

	resp, body = h.do(t, http.MethodGet, "/analyses/an-1/scene?hide=tools,tests", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Len(t, snap.Frame.Nodes, 2)

	resp, body = h.do(t, http.MethodGet, "/analyses/an-1/scene.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(body)), "<svg") || strings.HasPrefix(string(body), "<?xml"))
}

func TestExports(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/analyses", analysisBody)

	resp, body := h.do(t, http.MethodPost, "/analyses/an-1/exports?format=json", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var rec domain.ExportRecord
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.Equal(t, "an-1/scene.json", rec.Path)

	_, err := os.Stat(filepath.Join(h.root, "an-1", "scene.json"))
	require.NoError(t, err)

	resp, _ = h.do(t, http.MethodPost, "/analyses/an-1/exports?path=../escape.svg", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/analyses/an-1/exports?format=png", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/analyses/an-1/exports", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.ExportRecord
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)
}

func TestParseHidden(t *testing.T) {
	assert.Equal(t, layout.Visibility{}, ParseHidden(""))
	assert.Equal(t, layout.Visibility{HideTools: true, HideTests: true}, ParseHidden("Tools, tests"))
	assert.Equal(t, layout.Visibility{HideRelationships: true}, ParseHidden("rels,unknown"))
}

func TestRoutesRejectUnknownPaths(t *testing.T) {
	h := newHarness(t)
	h.do(t, http.MethodPost, "/analyses", analysisBody)

	resp, _ := h.do(t, http.MethodPut, "/analyses/an-1/tests/garbage", `[]`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/analyses/an-1/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/analyses/an-1/running", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, body := h.do(t, http.MethodPut, "/analyses/an-1/tests", `[{"id":"tc9"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"count":1`)
}
