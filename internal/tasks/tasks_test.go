package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	ttesting "github.com/desertthunder/spinlist/internal/testing"
)

type mockEvaluator struct {
	results map[string][]models.Song // keyed by pipeline.Describe of the root
	err     error
	calls   int
}

func (m *mockEvaluator) Evaluate(ctx context.Context, p pipeline.Pipe) ([]models.Song, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results[pipeline.Describe(p)], nil
}

type mockResolver struct {
	ids    map[models.RawTrack]string
	err    error
	tracks []models.RawTrack
}

func (m *mockResolver) ResolveAll(ctx context.Context, tracks []models.RawTrack) ([]string, error) {
	m.tracks = append(m.tracks, tracks...)
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for _, t := range tracks {
		if id, ok := m.ids[t]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type mockRecorder struct {
	runs []models.TaskRun
	err  error
}

func (m *mockRecorder) Create(ctx context.Context, run *models.TaskRun) error {
	m.runs = append(m.runs, *run)
	return m.err
}

func uris(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("spotify:track:%d", i)
	}
	return ids
}

func songs(n int) []models.Song {
	out := make([]models.Song, n)
	for i, id := range uris(n) {
		out[i] = models.Song{ID: id}
	}
	return out
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 5, 17, 6, 0, 0, 0, time.UTC) }
}

func pipelineCfg(name, playlist, prefix string) pipeline.PipelineConfig {
	return pipeline.PipelineConfig{
		Name:              name,
		TargetPlaylistID:  playlist,
		DescriptionPrefix: prefix,
		Root:              pipeline.NewPipe(pipeline.LoadPlaylist{PlaylistID: name}),
	}
}

func TestWritePlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("pages of 100", func(t *testing.T) {
		tests := []struct {
			count int
			pages []int
		}{
			{0, nil},
			{1, []int{1}},
			{100, []int{100}},
			{101, []int{100, 1}},
			{250, []int{100, 100, 50}},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("%d uris", tt.count), func(t *testing.T) {
				sink := &ttesting.MockSink{}
				ids := uris(tt.count)

				if err := WritePlaylist(ctx, sink, "pl", ids); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if len(sink.Calls) != len(tt.pages) {
					t.Fatalf("expected %d calls, got %d", len(tt.pages), len(sink.Calls))
				}

				var written []string
				for i, call := range sink.Calls {
					wantOp := "append"
					if i == 0 {
						wantOp = "replace"
					}
					if call.Op != wantOp || call.PlaylistID != "pl" || len(call.URIs) != tt.pages[i] {
						t.Errorf("call %d = %s %s (%d uris)", i, call.Op, call.PlaylistID, len(call.URIs))
					}
					written = append(written, call.URIs...)
				}
				if len(ids) > 0 && !slices.Equal(written, ids) {
					t.Error("pages do not reproduce the input order")
				}
			})
		}
	})

	t.Run("failures are SinkErrors with offsets", func(t *testing.T) {
		boom := errors.New("403 forbidden")
		sink := &ttesting.MockSink{FailOn: 3, Err: boom}

		err := WritePlaylist(ctx, sink, "pl", uris(250))

		var sinkErr *SinkError
		if !errors.As(err, &sinkErr) {
			t.Fatalf("expected SinkError, got %v", err)
		}
		if sinkErr.Op != "append" || sinkErr.Offset != 200 || sinkErr.PlaylistID != "pl" {
			t.Errorf("unexpected sink error %+v", sinkErr)
		}
		if !errors.Is(err, boom) {
			t.Error("expected cause in chain")
		}
	})
}

func TestEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("RunPipeline writes and describes", func(t *testing.T) {
		cfg := pipelineCfg("weekly", "target", "Weekly mix")
		eval := &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(cfg.Root): songs(120)}}
		sink := &ttesting.MockSink{}
		engine := NewEngine(EngineOpts{Evaluator: eval, Sink: sink, Now: fixedClock()})

		progress := make(chan ProgressUpdate, 10)
		n, err := engine.RunPipeline(ctx, cfg, progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 120 {
			t.Errorf("expected 120 tracks written, got %d", n)
		}

		if len(sink.Calls) != 3 {
			t.Fatalf("expected replace, append and describe, got %d calls", len(sink.Calls))
		}
		desc := sink.Calls[2]
		if desc.Op != "describe" || desc.Description != "Weekly mix · updated 2024-05-17" {
			t.Errorf("unexpected description call %+v", desc)
		}

		close(progress)
		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if !slices.Equal(phases, []Phase{Evaluate, WriteItems, SetDescription}) {
			t.Errorf("unexpected phases %v", phases)
		}
	})

	t.Run("RunPipeline without prefix skips description", func(t *testing.T) {
		cfg := pipelineCfg("plain", "target", "")
		eval := &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(cfg.Root): songs(2)}}
		sink := &ttesting.MockSink{}

		if _, err := NewEngine(EngineOpts{Evaluator: eval, Sink: sink}).RunPipeline(ctx, cfg, nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sink.Calls) != 1 || sink.Calls[0].Op != "replace" {
			t.Errorf("unexpected calls %+v", sink.Calls)
		}
	})

	t.Run("evaluation errors prevent writes", func(t *testing.T) {
		loadErr := &pipeline.LoaderError{Step: "load_playlist", ID: "gone", Err: errors.New("404")}
		sink := &ttesting.MockSink{}

		_, err := NewEngine(EngineOpts{Evaluator: &mockEvaluator{err: loadErr}, Sink: sink}).
			RunPipeline(ctx, pipelineCfg("p", "t", "x"), nil)

		var target *pipeline.LoaderError
		if !errors.As(err, &target) {
			t.Fatalf("expected LoaderError, got %v", err)
		}
		if len(sink.Calls) != 0 {
			t.Errorf("expected no writes, got %+v", sink.Calls)
		}
	})

	t.Run("description failures fail the task", func(t *testing.T) {
		cfg := pipelineCfg("p", "t", "prefix")
		eval := &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(cfg.Root): songs(1)}}
		sink := &ttesting.MockSink{FailOn: 2}

		_, err := NewEngine(EngineOpts{Evaluator: eval, Sink: sink}).RunPipeline(ctx, cfg, nil)

		var sinkErr *SinkError
		if !errors.As(err, &sinkErr) || sinkErr.Op != "describe" {
			t.Errorf("expected describe SinkError, got %v", err)
		}
	})

	t.Run("RefreshStation resolves feed", func(t *testing.T) {
		feed := &ttesting.MockFeed{Tracks: []models.RawTrack{
			{Artist: "A", Title: "One"},
			{Artist: "B", Title: "Two"},
			{Artist: "C", Title: "Three"},
		}}
		resolver := &mockResolver{ids: map[models.RawTrack]string{
			{Artist: "A", Title: "One"}:   "spotify:track:a",
			{Artist: "C", Title: "Three"}: "spotify:track:c",
		}}
		sink := &ttesting.MockSink{}

		var gotCfg models.StationConfig
		engine := NewEngine(EngineOpts{
			Resolver: resolver,
			Sink:     sink,
			Feeds: func(cfg models.StationConfig) FeedSource {
				gotCfg = cfg
				return feed
			},
			Now: fixedClock(),
		})

		station := models.StationConfig{Name: "radio", FeedURL: "http://feed", PlaylistID: "radio-pl", DescriptionPrefix: "Radio"}
		n, err := engine.RefreshStation(ctx, station, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n != 2 || gotCfg.FeedURL != "http://feed" {
			t.Errorf("unexpected result n=%d cfg=%+v", n, gotCfg)
		}
		if !slices.Equal(sink.Calls[0].URIs, []string{"spotify:track:a", "spotify:track:c"}) {
			t.Errorf("unexpected uris %v", sink.Calls[0].URIs)
		}
		if sink.Calls[1].Description != "Radio · updated 2024-05-17" {
			t.Errorf("unexpected description %q", sink.Calls[1].Description)
		}
	})

	t.Run("empty results leave the playlist untouched", func(t *testing.T) {
		cfg := pipelineCfg("hits", "pl", "Hits")
		sink := &ttesting.MockSink{}
		engine := NewEngine(EngineOpts{
			Evaluator: &mockEvaluator{},
			Resolver:  &mockResolver{},
			Sink:      sink,
			Feeds: func(models.StationConfig) FeedSource {
				return &ttesting.MockFeed{Tracks: []models.RawTrack{{Artist: "Nobody", Title: "Unknown"}}}
			},
			Now: fixedClock(),
		})

		n, err := engine.RunPipeline(ctx, cfg, nil)
		if err != nil || n != 0 {
			t.Fatalf("expected 0 tracks and no error, got %d %v", n, err)
		}

		station := models.StationConfig{Name: "radio", FeedURL: "http://feed", PlaylistID: "radio-pl", DescriptionPrefix: "Radio"}
		n, err = engine.RefreshStation(ctx, station, nil)
		if err != nil || n != 0 {
			t.Fatalf("expected 0 tracks and no error, got %d %v", n, err)
		}

		if len(sink.Calls) != 0 {
			t.Errorf("expected no sink calls, got %+v", sink.Calls)
		}
	})

	t.Run("RefreshStation keeps repeat plays unless dedup is set", func(t *testing.T) {
		feed := &ttesting.MockFeed{Tracks: []models.RawTrack{
			{Artist: "A", Title: "One"},
			{Artist: "B", Title: "Two"},
			{Artist: "A", Title: "One"},
		}}
		ids := map[models.RawTrack]string{
			{Artist: "A", Title: "One"}: "spotify:track:a",
			{Artist: "B", Title: "Two"}: "spotify:track:b",
		}

		tt := []struct {
			dedup bool
			want  []string
		}{
			{false, []string{"spotify:track:a", "spotify:track:b", "spotify:track:a"}},
			{true, []string{"spotify:track:a", "spotify:track:b"}},
		}
		for _, tc := range tt {
			resolver := &mockResolver{ids: ids}
			sink := &ttesting.MockSink{}
			engine := NewEngine(EngineOpts{
				Resolver: resolver,
				Sink:     sink,
				Feeds:    func(models.StationConfig) FeedSource { return feed },
			})

			station := models.StationConfig{Name: "radio", PlaylistID: "radio-pl", Dedup: tc.dedup}
			if _, err := engine.RefreshStation(ctx, station, nil); err != nil {
				t.Fatalf("dedup=%v: expected no error, got %v", tc.dedup, err)
			}
			if !slices.Equal(sink.Calls[0].URIs, tc.want) {
				t.Errorf("dedup=%v: uris = %v, want %v", tc.dedup, sink.Calls[0].URIs, tc.want)
			}
		}
	})

	t.Run("RefreshStation fails fast", func(t *testing.T) {
		tests := []struct {
			name     string
			feed     *ttesting.MockFeed
			resolver *mockResolver
			want     string
		}{
			{"feed error", &ttesting.MockFeed{Err: errors.New("timeout")}, &mockResolver{}, "fetch feed"},
			{"resolver error", &ttesting.MockFeed{Tracks: []models.RawTrack{{Artist: "A", Title: "B"}}}, &mockResolver{err: errors.New("cache")}, "resolve"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				sink := &ttesting.MockSink{}
				engine := NewEngine(EngineOpts{
					Resolver: tt.resolver,
					Sink:     sink,
					Feeds:    func(models.StationConfig) FeedSource { return tt.feed },
				})

				_, err := engine.RefreshStation(ctx, models.StationConfig{Name: "s", PlaylistID: "p"}, nil)
				if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
					t.Errorf("expected %q error, got %v", tt.want, err)
				}
				if len(sink.Calls) != 0 {
					t.Error("no writes expected after a failure")
				}
			})
		}
	})

	t.Run("missing collaborators", func(t *testing.T) {
		engine := NewEngine(EngineOpts{})
		if _, err := engine.RunPipeline(ctx, pipelineCfg("p", "t", ""), nil); err == nil {
			t.Error("expected error without evaluator")
		}
		if _, err := engine.RefreshStation(ctx, models.StationConfig{}, nil); err == nil {
			t.Error("expected error without feeds")
		}
	})

	t.Run("RunAll isolates failures", func(t *testing.T) {
		good := pipelineCfg("good", "good-pl", "")
		bad := pipelineCfg("bad", "bad-pl", "")
		eval := &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(good.Root): songs(3)}}
		failing := &failOnce{mockEvaluator: eval, fail: pipeline.Describe(bad.Root)}

		sink := &ttesting.MockSink{}
		recorder := &mockRecorder{}
		var observed []string

		engine := NewEngine(EngineOpts{
			Evaluator: failing,
			Resolver:  &mockResolver{ids: map[models.RawTrack]string{{Artist: "A", Title: "B"}: "x"}},
			Sink:      sink,
			Feeds: func(models.StationConfig) FeedSource {
				return &ttesting.MockFeed{Tracks: []models.RawTrack{{Artist: "A", Title: "B"}}}
			},
			Runs:     recorder,
			Now:      fixedClock(),
			OnResult: func(r TaskResult) { observed = append(observed, r.Task) },
		})

		progress := make(chan ProgressUpdate, 100)
		summary := engine.RunAll(ctx,
			[]pipeline.PipelineConfig{bad, good},
			[]models.StationConfig{{Name: "radio", PlaylistID: "radio-pl"}},
			progress,
		)

		if len(summary.Results) != 3 || summary.Succeeded() != 2 || summary.Failed() != 1 {
			t.Fatalf("unexpected summary %+v", summary)
		}
		if summary.RunID == "" {
			t.Error("expected run id")
		}
		if summary.Results[0].Status() != models.TaskFailed || summary.Results[1].TracksWritten != 3 {
			t.Errorf("unexpected results %+v", summary.Results)
		}
		if err := summary.Err(); err == nil || !strings.Contains(err.Error(), "pipeline bad") {
			t.Errorf("expected joined error naming the task, got %v", err)
		}

		if !slices.Equal(observed, []string{"bad", "good", "radio"}) {
			t.Errorf("observer saw %v", observed)
		}

		if len(recorder.runs) != 3 {
			t.Fatalf("expected 3 recorded runs, got %d", len(recorder.runs))
		}
		for _, run := range recorder.runs {
			if run.RunID != summary.RunID {
				t.Errorf("run %s has run id %q, want %q", run.Task, run.RunID, summary.RunID)
			}
		}
		if recorder.runs[0].ErrorMessage == "" || recorder.runs[2].Kind != models.StationTask {
			t.Errorf("unexpected recorded runs %+v", recorder.runs)
		}

		close(progress)
		done := 0
		for u := range progress {
			if u.Phase == TaskDone {
				done++
			}
		}
		if done != 3 {
			t.Errorf("expected 3 task_done updates, got %d", done)
		}
	})

	t.Run("RunAll skips tasks after cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		eval := &mockEvaluator{}
		summary := NewEngine(EngineOpts{Evaluator: eval, Sink: &ttesting.MockSink{}}).
			RunAll(cctx, []pipeline.PipelineConfig{pipelineCfg("p", "t", "")}, nil, nil)

		if summary.Failed() != 1 || !errors.Is(summary.Results[0].Err, context.Canceled) {
			t.Errorf("expected canceled task, got %+v", summary.Results)
		}
		if eval.calls != 0 {
			t.Error("evaluator should not run after cancellation")
		}
	})

	t.Run("recorder failures do not fail tasks", func(t *testing.T) {
		cfg := pipelineCfg("p", "t", "")
		eval := &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(cfg.Root): songs(1)}}

		summary := NewEngine(EngineOpts{Evaluator: eval, Sink: &ttesting.MockSink{}, Runs: &mockRecorder{err: errors.New("locked")}}).
			RunAll(ctx, []pipeline.PipelineConfig{cfg}, nil, nil)

		if summary.Failed() != 0 {
			t.Errorf("expected success, got %v", summary.Err())
		}
	})
}

type failOnce struct {
	*mockEvaluator
	fail string
}

func (f *failOnce) Evaluate(ctx context.Context, p pipeline.Pipe) ([]models.Song, error) {
	if pipeline.Describe(p) == f.fail {
		return nil, errors.New("loader exploded")
	}
	return f.mockEvaluator.Evaluate(ctx, p)
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	good := pipelineCfg("Good Mix", "good-pl", "")
	bad := pipelineCfg("bad", "bad-pl", "")
	eval := &failOnce{
		mockEvaluator: &mockEvaluator{results: map[string][]models.Song{pipeline.Describe(good.Root): songs(4)}},
		fail:          pipeline.Describe(bad.Root),
	}
	engine := NewEngine(EngineOpts{Evaluator: eval, Now: fixedClock()})

	t.Run("writes files and manifest", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "out")

		result, err := engine.BulkExport(ctx, nil, []pipeline.PipelineConfig{good, bad}, BulkExportOpts{Format: "csv", OutputDir: dir})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		ttesting.AssertDirExists(t, dir)
		if result.SuccessfulExports != 1 || result.FailedExports != 1 || result.TotalPipelines != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Results[0].Songs != 4 || len(result.Results[0].Files) != 2 {
			t.Errorf("unexpected good result %+v", result.Results[0])
		}
		ttesting.AssertFileExists(t, filepath.Join(dir, "good-mix_tracks.csv"))

		manifest := ttesting.MustReadFile(t, result.ManifestPath)
		for _, want := range []string{`"format": "csv"`, `"successful_exports": 1`, `"error": "evaluate: loader exploded"`} {
			if !strings.Contains(manifest, want) {
				t.Errorf("manifest missing %s:\n%s", want, manifest)
			}
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		if _, err := engine.BulkExport(ctx, nil, nil, BulkExportOpts{Format: "xml", OutputDir: t.TempDir()}); err == nil {
			t.Error("expected format error")
		}
	})
}
