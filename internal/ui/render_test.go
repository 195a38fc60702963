package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/tasks"
)

func TestRenderSummary(t *testing.T) {
	start := time.Date(2024, 5, 17, 6, 0, 0, 0, time.UTC)
	summary := &tasks.RunSummary{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Results: []tasks.TaskResult{
			{Task: "weekly", Kind: models.PipelineTask, PlaylistID: "pl1", TracksWritten: 50, Duration: time.Second},
			{Task: "radio", Kind: models.StationTask, PlaylistID: "pl2", Err: errors.New("resolve: search failed")},
		},
	}

	out := RenderSummary(summary)
	for _, want := range []string{"Task", "weekly", "pipeline", "pl1", "50", "1s", "ok", "radio", "resolve: search failed", "run run-1: 1 succeeded, 1 failed in 3s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRenderPipelines(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if out := RenderPipelines(nil); !strings.Contains(out, "no pipelines configured") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("rows", func(t *testing.T) {
		out := RenderPipelines([]pipeline.PipelineConfig{{
			Name:             "weekly",
			TargetPlaylistID: "target",
			Root:             pipeline.NewPipe(pipeline.LoadAlbum{AlbumID: "a1"}, pipeline.Shuffle{}),
		}})
		for _, want := range []string{"Pipelines", "weekly", "target", "load_album(a1) | shuffle"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestRenderCacheEntries(t *testing.T) {
	if out := RenderCacheEntries(nil); !strings.Contains(out, "track cache is empty") {
		t.Errorf("unexpected output %q", out)
	}

	out := RenderCacheEntries([]models.CacheEntry{{
		Artist:      "Apache 207",
		Title:       "Roller",
		CanonicalID: "spotify:track:roller",
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC),
	}})
	for _, want := range []string{"Apache 207", "Roller", "spotify:track:roller", "2024-01-02 03:04"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("line one\nline two", 8); got != "line on…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestRenderStations(t *testing.T) {
	if out := RenderStations(nil); !strings.Contains(out, "no stations configured") {
		t.Errorf("unexpected output %q", out)
	}

	out := RenderStations([]models.StationConfig{{Name: "kexp", FeedURL: "https://feeds.test/kexp.json", PlaylistID: "pl9"}})
	for _, want := range []string{"Stations", "kexp", "pl9", "https://feeds.test/kexp.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTaskRuns(t *testing.T) {
	if out := RenderTaskRuns(nil); !strings.Contains(out, "no task runs recorded") {
		t.Errorf("unexpected output %q", out)
	}

	start := time.Date(2024, 5, 17, 6, 0, 0, 0, time.UTC)
	out := RenderTaskRuns([]models.TaskRun{
		{Task: "weekly", Kind: models.PipelineTask, TracksWritten: 40, Status: models.TaskSucceeded, StartedAt: start, FinishedAt: start.Add(2 * time.Second)},
		{Task: "kexp", Kind: models.StationTask, Status: models.TaskFailed, ErrorMessage: "fetch feed: 503", StartedAt: start, FinishedAt: start},
	})
	for _, want := range []string{"2024-05-17 06:00", "weekly", "pipeline", "40", "2s", "succeeded", "kexp", "station", "fetch feed: 503"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
