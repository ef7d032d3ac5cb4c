// Package rasterize renders PDF pages to base64 PNG images for the
// vision model.
package rasterize

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/adewale-ajadi/exam-extractor/constants"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
	"github.com/adewale-ajadi/exam-extractor/internal/pipeline"
)

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI, default 200
	MaxPages int    // 0 = no limit
}

type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Rasterizer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Render rasterizes every page of the PDF at path and returns them in page
// order as base64 PNG payloads, capped at MaxPages when set.
func (r *Rasterizer) Render(ctx context.Context, path string) ([]pipeline.Page, error) {
	if ext := filepath.Ext(path); !constants.IsAllowedExt(ext) {
		return nil, fmt.Errorf("unsupported extension: %q", ext)
	}

	// Cheap structural read before shelling out; a malformed document
	// fails here with a clearer error. Count disagreements are logged,
	// not fatal: pdftoppm's output is authoritative.
	expected, err := api.PageCountFile(path)
	if err != nil {
		r.logger.Warn("rasterize.precheck.failed", "path", path, "error", err)
		expected = 0
	}

	tmpDir, err := os.MkdirTemp("", "ee-raster-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("rasterize.tmpdir.remove_failed", "path", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", r.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (stderr: %s)", err, truncate(string(errb), 512))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...); pdftoppm
	// zero-pads the index so lexical order is page order
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images for %q", path)
	}

	pages := make([]pipeline.Page, 0, len(matches))
	for i, img := range matches {
		data, err := os.ReadFile(img)
		if err != nil {
			return nil, fmt.Errorf("read rendered page %d: %w", i+1, err)
		}
		pages = append(pages, pipeline.Page{
			Number: i + 1,
			Image: llm.ImagePayload{
				Base64Data: base64.StdEncoding.EncodeToString(data),
				MIMEType:   "image/png",
			},
		})
	}

	if expected > 0 && expected != len(pages) && r.cfg.MaxPages == 0 {
		r.logger.Warn("rasterize.page_count.mismatch",
			"path", path, "expected", expected, "rendered", len(pages))
	}
	r.logger.Info("rasterize.done", "path", path, "pages", len(pages), "dpi", r.cfg.DPI)
	return pages, nil
}
