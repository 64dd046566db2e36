// Package api serves analyses, test results and rendered canvases over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agentscope/internal/config"
	"agentscope/internal/domain"
	sqlitestore "agentscope/internal/store/sqlite"
)

type Store interface {
	SaveAnalysis(ctx context.Context, a domain.Analysis) (domain.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (domain.Analysis, error)
	ListAnalyses(ctx context.Context) ([]domain.Analysis, error)
	SetTestCases(ctx context.Context, analysisID string, cases []domain.TestCase) error
	SetRunningTest(ctx context.Context, analysisID, key string) error
	RecordTestResult(ctx context.Context, analysisID string, r domain.TestResult) (domain.TestResult, error)
	ListTestResults(ctx context.Context, analysisID string) ([]domain.TestResult, error)
	ListExports(ctx context.Context, analysisID string, limit int) ([]domain.ExportRecord, error)
}

type Exporter interface {
	WriteExport(ctx context.Context, analysisID, relPath string, content []byte) (domain.ExportRecord, error)
}

type Server struct {
	cfg     config.Config
	store   Store
	exports Exporter
	logger  *slog.Logger
}

func New(cfg config.Config, store Store, exports Exporter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		exports: exports,
		logger:  logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /analyses", s.handleListAnalyses)
	mux.HandleFunc("POST /analyses", s.handleCreateAnalysis)
	mux.HandleFunc("GET /analyses/{id}", s.handleGetAnalysis)
	mux.HandleFunc("PUT /analyses/{id}/tests", s.handleSetTests)
	mux.HandleFunc("POST /analyses/{id}/tests", s.handleSetTests)
	mux.HandleFunc("POST /analyses/{id}/running", s.handleSetRunning)
	mux.HandleFunc("GET /analyses/{id}/results", s.handleListResults)
	mux.HandleFunc("POST /analyses/{id}/results", s.handleRecordResult)
	mux.HandleFunc("GET /analyses/{id}/scene", s.handleScene)
	mux.HandleFunc("GET /analyses/{id}/scene.svg", s.handleSceneSVG)
	mux.HandleFunc("GET /analyses/{id}/exports", s.handleListExports)
	mux.HandleFunc("POST /analyses/{id}/exports", s.handleCreateExport)
	return s.loggingMiddleware(mux)
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("agentscope api started", "addr", addr, "db", s.cfg.Server.DBPath, "exports", s.cfg.Server.ExportDir)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path": s.cfg.Path,
		"raw":  s.cfg.Raw,
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

// writeStoreError maps a missing record to 404 and anything else to 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sqlitestore.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeError(w, http.StatusInternalServerError, err)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
