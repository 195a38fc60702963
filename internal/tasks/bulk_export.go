package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/spinlist/internal/formatter"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/shared"
)

// BulkExportOpts contains configuration for bulk pipeline exports.
type BulkExportOpts struct {
	Format    string // Export format: json, csv, markdown, txt
	OutputDir string // Base output directory (default: spinlist_export_{epoch})
}

// PlaylistExportResult is the outcome of exporting one pipeline.
type PlaylistExportResult struct {
	Task    string   `json:"task"`
	Songs   int      `json:"songs"`
	Files   []string `json:"files,omitempty"`
	Success bool     `json:"success"`
	Error   string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a [Engine.BulkExport] call.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	TotalPipelines    int                    `json:"total_pipelines"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	Results           []PlaylistExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

// BulkExport evaluates each pipeline and writes its songs to files instead of a playlist.
//
// Pipelines are evaluated one after another. A failing pipeline is reported in the result and the
// export continues. A manifest summarizing every export is written to the output directory.
func (e *Engine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, pipelines []pipeline.PipelineConfig, opts BulkExportOpts) (*BulkExportResult, error) {
	if e.evaluator == nil {
		return nil, fmt.Errorf("%w: evaluator not initialized", shared.ErrServiceUnavailable)
	}

	format, err := formatter.ParseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spinlist_export_%d", e.now().Unix())
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          format.String(),
		ExportedAt:      e.now(),
		TotalPipelines:  len(pipelines),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(pipelines)),
	}

	for i, p := range pipelines {
		e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(pipelines), p.Name))

		res := e.exportPipeline(ctx, p, format, opts.OutputDir)
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(i+1, len(pipelines), p.Name, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(i+1, len(pipelines), p.Name, fmt.Errorf("%s", res.Error)))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportPipeline evaluates a single pipeline and writes it in the requested format.
func (e *Engine) exportPipeline(ctx context.Context, p pipeline.PipelineConfig, format formatter.Format, dir string) PlaylistExportResult {
	result := PlaylistExportResult{Task: p.Name}

	songs, err := e.evaluator.Evaluate(ctx, p.Root)
	if err != nil {
		result.Error = fmt.Sprintf("evaluate: %v", err)
		return result
	}

	snapshot := &models.PlaylistSnapshot{
		Name:        p.Name,
		PlaylistID:  p.TargetPlaylistID,
		Description: pipeline.Describe(p.Root),
		Songs:       songs,
		GeneratedAt: e.now(),
	}

	files, err := formatter.WriteSnapshot(snapshot, format, dir)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Songs = len(songs)
	result.Files = files
	result.Success = true
	return result
}
