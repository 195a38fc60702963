package tasks

import (
	"fmt"

	"github.com/desertthunder/spinlist/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Task    string // Task the update belongs to
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Evaluate Phase = iota
	FetchFeed
	ResolveTracks
	WriteItems
	SetDescription
	TaskDone
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case Evaluate:
		return "evaluate"
	case FetchFeed:
		return "fetch_feed"
	case ResolveTracks:
		return "resolve_tracks"
	case WriteItems:
		return "write_items"
	case SetDescription:
		return "set_description"
	case TaskDone:
		return "task_done"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func evaluateUpdate(task string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Evaluate,
		Task:    task,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Evaluating pipeline %s...", task),
	}
}

func fetchFeedUpdate(task, url string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Task:    task,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching feed %s...", url),
	}
}

func resolveTracksUpdate(task string, tracks []models.RawTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Task:    task,
		Step:    0,
		Total:   len(tracks),
		Message: fmt.Sprintf("Resolving %d tracks...", len(tracks)),
		Data:    tracks,
	}
}

func writeItemsUpdate(task, playlistID string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteItems,
		Task:    task,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %d tracks to playlist %s...", count, playlistID),
	}
}

func setDescriptionUpdate(task, description string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SetDescription,
		Task:    task,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Setting description: %s", description),
	}
}

func taskDoneUpdate(step, total int, res TaskResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, res.Task, res.TracksWritten)
	if res.Err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Task, res.Err)
	}
	return ProgressUpdate{
		Phase:   TaskDone,
		Task:    res.Task,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Task:    name,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Task:    name,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Task:    name,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
