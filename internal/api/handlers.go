package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"agentscope/internal/canvas"
	"agentscope/internal/domain"
	"agentscope/internal/layout"
	"agentscope/internal/metrics"
	"agentscope/internal/render"
)

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListAnalyses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req domain.Analysis
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	saved, err := s.store.SaveAnalysis(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSetTests(w http.ResponseWriter, r *http.Request) {
	var cases []domain.TestCase
	if err := json.NewDecoder(r.Body).Decode(&cases); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if err := s.store.SetTestCases(r.Context(), r.PathValue("id"), cases); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "test cases replaced", "count": len(cases)})
}

func (s *Server) handleSetRunning(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if err := s.store.SetRunningTest(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Key)); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "running test updated", "key": req.Key})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	analysisID := r.PathValue("id")
	if _, err := s.store.GetAnalysis(r.Context(), analysisID); err != nil {
		writeStoreError(w, err)
		return
	}
	items, err := s.store.ListTestResults(r.Context(), analysisID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	var req domain.TestResult
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
		return
	}
	if strings.TrimSpace(req.TestID) == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("test_id and status are required"))
		return
	}
	saved, err := s.store.RecordTestResult(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSceneSVG(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(r, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := render.WriteSVG(&buf, snap.Frame); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListExports(r.Context(), r.PathValue("id"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("exports are not configured"))
		return
	}
	analysisID := r.PathValue("id")
	format := strings.ToLower(firstNonEmpty(r.URL.Query().Get("format"), "svg"))
	snap, err := s.snapshot(r, analysisID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	var buf bytes.Buffer
	switch format {
	case "svg":
		err = render.WriteSVG(&buf, snap.Frame)
	case "json":
		err = json.NewEncoder(&buf).Encode(snap)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported format %q", format))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rel := firstNonEmpty(r.URL.Query().Get("path"), path.Join(analysisID, "scene."+format))
	rec, err := s.exports.WriteExport(r.Context(), analysisID, rel, buf.Bytes())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// snapshot renders the stored analysis with the view parameters of the query:
// width, height, strategy, hide and the four slider values.
func (s *Server) snapshot(r *http.Request, analysisID string) (canvas.Snapshot, error) {
	a, err := s.store.GetAnalysis(r.Context(), analysisID)
	if err != nil {
		return canvas.Snapshot{}, err
	}
	results, err := s.store.ListTestResults(r.Context(), analysisID)
	if err != nil {
		return canvas.Snapshot{}, err
	}

	cfg := s.cfg.Canvas(
		float64(queryInt(r, "width", 1280)),
		float64(queryInt(r, "height", 800)),
	)
	if v := r.URL.Query().Get("strategy"); v != "" {
		cfg.Layout.TestStrategy = layout.ParseStrategy(v)
	}
	sliders := metrics.Sliders{
		Reasoning:        queryFloat(r, "reasoning", 50),
		Accuracy:         queryFloat(r, "accuracy", 50),
		CostOptimization: queryFloat(r, "cost", 50),
		Speed:            queryFloat(r, "speed", 50),
	}
	return canvas.TakeSnapshot(cfg, canvas.SnapshotInput{
		Analysis:   a,
		Results:    results,
		Sliders:    &sliders,
		Visibility: ParseHidden(r.URL.Query().Get("hide")),
	}, s.logger), nil
}

// ParseHidden reads a comma separated list of kinds to hide.
func ParseHidden(v string) layout.Visibility {
	var vis layout.Visibility
	for _, item := range strings.Split(v, ",") {
		switch strings.ToLower(strings.TrimSpace(item)) {
		case "tools", "tool":
			vis.HideTools = true
		case "relationships", "relationship", "rels":
			vis.HideRelationships = true
		case "tests", "test":
			vis.HideTests = true
		}
	}
	return vis
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
