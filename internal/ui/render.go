package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/pipeline"
	"github.com/desertthunder/spinlist/internal/shared"
	"github.com/desertthunder/spinlist/internal/tasks"
)

// maxErrorWidth truncates error messages in tables.
const maxErrorWidth = 60

func newTable(headers ...string) *table.Table {
	header := NewBold("#7D56F4")
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(NewStyle("#626262")).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header.Padding(0, 1)
			}
			return cell
		}).
		Headers(headers...)
}

// RenderSummary renders the outcome of every task in s followed by a totals line.
func RenderSummary(s *tasks.RunSummary) string {
	t := newTable("Task", "Kind", "Playlist", "Tracks", "Took", "Result")
	for _, r := range s.Results {
		result := styles.OK("ok")
		if r.Err != nil {
			result = styles.Err(truncate(r.Err.Error(), maxErrorWidth))
		}
		t.Row(r.Task, string(r.Kind), r.PlaylistID, strconv.Itoa(r.TracksWritten), shared.FormatDuration(r.Duration), result)
	}

	totals := fmt.Sprintf("run %s: %d succeeded, %d failed in %s",
		s.RunID, s.Succeeded(), s.Failed(), shared.FormatDuration(s.FinishedAt.Sub(s.StartedAt)))
	if s.Failed() > 0 {
		totals = styles.Warn(totals)
	} else {
		totals = styles.Help(totals)
	}

	return t.Render() + "\n" + totals + "\n"
}

// RenderPipelines lists pipelines with their target playlists and step trees.
func RenderPipelines(configs []pipeline.PipelineConfig) string {
	if len(configs) == 0 {
		return styles.Help("no pipelines configured") + "\n"
	}

	t := newTable("Name", "Playlist", "Steps")
	for _, c := range configs {
		t.Row(c.Name, c.TargetPlaylistID, pipeline.Describe(c.Root))
	}
	return styles.Title("Pipelines") + "\n" + t.Render() + "\n"
}

// RenderCacheEntries lists track cache rows.
func RenderCacheEntries(entries []models.CacheEntry) string {
	if len(entries) == 0 {
		return styles.Help("track cache is empty") + "\n"
	}

	t := newTable("Artist", "Title", "Track", "Cached")
	for _, e := range entries {
		t.Row(e.Artist, e.Title, e.CanonicalID, e.CreatedAt.Format("2006-01-02 15:04"))
	}
	return t.Render() + "\n"
}

// RenderStations lists station refresh tasks.
func RenderStations(stations []models.StationConfig) string {
	if len(stations) == 0 {
		return styles.Help("no stations configured") + "\n"
	}

	t := newTable("Name", "Playlist", "Feed")
	for _, s := range stations {
		t.Row(s.Name, s.PlaylistID, s.FeedURL)
	}
	return styles.Title("Stations") + "\n" + t.Render() + "\n"
}

// RenderTaskRuns lists recorded task runs, newest first.
func RenderTaskRuns(runs []models.TaskRun) string {
	if len(runs) == 0 {
		return styles.Help("no task runs recorded") + "\n"
	}

	t := newTable("Started", "Task", "Kind", "Tracks", "Took", "Status")
	for _, r := range runs {
		status := styles.OK(string(r.Status))
		if r.Status == models.TaskFailed {
			status = styles.Err(truncate(r.ErrorMessage, maxErrorWidth))
		}
		t.Row(r.StartedAt.Format("2006-01-02 15:04"), r.Task, string(r.Kind), strconv.Itoa(r.TracksWritten), shared.FormatDuration(r.Duration()), status)
	}
	return t.Render() + "\n"
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
