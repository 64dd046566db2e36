package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agentscope/internal/domain"
)

var (
	ErrPathEscapesRoot   = errors.New("path escapes export root")
	ErrUnsupportedFormat = errors.New("export format is not supported")
)

// Formats accepted by the gateway, keyed by file extension.
var exportFormats = map[string]bool{
	"svg":  true,
	"json": true,
}

type ExportLogger interface {
	LogExport(ctx context.Context, rec domain.ExportRecord) (domain.ExportRecord, error)
}

// Gateway confines rendered artifacts to a single export root.
type Gateway struct {
	root   string
	logger ExportLogger
}

func NewGateway(root string, logger ExportLogger) (*Gateway, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve export root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create export root: %w", err)
	}
	return &Gateway{
		root:   absRoot,
		logger: logger,
	}, nil
}

func (g *Gateway) Root() string { return g.root }

// WriteExport writes content under the root and records it in the export log.
// The format is taken from the file extension.
func (g *Gateway) WriteExport(ctx context.Context, analysisID, relPath string, content []byte) (domain.ExportRecord, error) {
	absPath, normalized, err := g.resolve(relPath)
	if err != nil {
		return domain.ExportRecord{}, err
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(normalized)), ".")
	if !exportFormats[format] {
		return domain.ExportRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, relPath)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return domain.ExportRecord{}, fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return domain.ExportRecord{}, fmt.Errorf("write export: %w", err)
	}

	rec := domain.ExportRecord{
		AnalysisID: analysisID,
		Path:       normalized,
		Format:     format,
		Bytes:      len(content),
		CreatedAt:  time.Now().UTC(),
	}
	if g.logger == nil {
		return rec, nil
	}
	logged, err := g.logger.LogExport(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("log export: %w", err)
	}
	return logged, nil
}

func (g *Gateway) ReadExport(relPath string) ([]byte, error) {
	absPath, _, err := g.resolve(relPath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return content, nil
}

func (g *Gateway) resolve(relPath string) (absolute string, normalized string, err error) {
	normalized = strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	normalized = strings.TrimPrefix(normalized, "./")
	normalized = strings.TrimPrefix(normalized, "/")
	if normalized == "" || normalized == "." {
		return "", "", fmt.Errorf("invalid relative path %q", relPath)
	}

	abs := filepath.Join(g.root, filepath.FromSlash(normalized))
	absClean := filepath.Clean(abs)
	absRoot := filepath.Clean(g.root)

	rel, err := filepath.Rel(absRoot, absClean)
	if err != nil {
		return "", "", fmt.Errorf("resolve relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == "." {
		return "", "", fmt.Errorf("%w: %q", ErrPathEscapesRoot, relPath)
	}
	return absClean, filepath.ToSlash(rel), nil
}
