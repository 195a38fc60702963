// package formatter renders evaluated song lists as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/desertthunder/spinlist/internal/models"
	"github.com/desertthunder/spinlist/internal/shared"
)

// Format is an export encoding.
type Format int

const (
	JSON Format = iota
	CSV
	Markdown
	Text
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case CSV:
		return "csv"
	case Markdown:
		return "markdown"
	case Text:
		return "txt"
	default:
		return ""
	}
}

// ParseFormat maps a flag value to a [Format]. An empty value selects [JSON].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return 0, fmt.Errorf("%w: unknown format %q (want json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// SnapshotToCSV converts a snapshot to CSV with columns: Position, ID, Title, Artists, Explicit
func SnapshotToCSV(snapshot *models.PlaylistSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artists", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, song := range snapshot.Songs {
		record := []string{
			strconv.Itoa(i + 1),
			song.ID,
			song.Title,
			song.ArtistLine(),
			strconv.FormatBool(song.Explicit),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SnapshotToMarkdown converts a snapshot to a Markdown document with a numbered track list
func SnapshotToMarkdown(snapshot *models.PlaylistSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", snapshot.Name)
	if snapshot.Description != "" {
		fmt.Fprintf(&buf, "**Pipeline**: `%s`\n\n", snapshot.Description)
	}
	if snapshot.PlaylistID != "" {
		fmt.Fprintf(&buf, "**Playlist**: %s\n", snapshot.PlaylistID)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(snapshot.Songs))
	if !snapshot.GeneratedAt.IsZero() {
		fmt.Fprintf(&buf, "**Generated**: %s\n", snapshot.GeneratedAt.Format("2006-01-02 15:04"))
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, song := range snapshot.Songs {
		explicit := ""
		if song.Explicit {
			explicit = " 🅴"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s\n", i+1, song.ArtistLine(), song.Title, explicit)
	}

	return buf.Bytes(), nil
}

// SnapshotToText converts a snapshot to plain text
func SnapshotToText(snapshot *models.PlaylistSnapshot) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Pipeline: %s\n", snapshot.Name)
	if snapshot.Description != "" {
		fmt.Fprintf(&buf, "Steps: %s\n", snapshot.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(snapshot.Songs))

	for i, song := range snapshot.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.ArtistLine(), song.Title)
	}

	return buf.Bytes(), nil
}

// Encode renders snapshot in format.
func Encode(snapshot *models.PlaylistSnapshot, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return SnapshotToCSV(snapshot)
	case Markdown:
		return SnapshotToMarkdown(snapshot)
	case Text:
		return SnapshotToText(snapshot)
	default:
		return shared.MarshalJSON(snapshot, true)
	}
}

// Write renders snapshot in format to w.
func Write(w io.Writer, snapshot *models.PlaylistSnapshot, format Format) error {
	data, err := Encode(snapshot, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s output: %w", format, err)
	}
	return nil
}

// WriteSnapshot writes snapshot to dir and returns the created files.
//
// Layout per format, with {base} the slugged snapshot name:
//   - json: {base}.json
//   - csv: {base}_tracks.csv and {base}_metadata.json
//   - markdown: {base}/README.md
//   - txt: {base}_tracks.txt
func WriteSnapshot(snapshot *models.PlaylistSnapshot, format Format, dir string) ([]string, error) {
	base := filepath.Join(dir, Slug(snapshot.Name))

	switch format {
	case CSV:
		tracksFile := base + "_tracks.csv"
		if err := writeFile(tracksFile, snapshot, CSV); err != nil {
			return nil, err
		}

		meta := *snapshot
		meta.Songs = nil
		metaJSON, err := shared.MarshalJSON(meta, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		metadataFile := base + "_metadata.json"
		if err := os.WriteFile(metadataFile, metaJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		return []string{tracksFile, metadataFile}, nil

	case Markdown:
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		mdFile := filepath.Join(base, "README.md")
		if err := writeFile(mdFile, snapshot, Markdown); err != nil {
			return nil, err
		}
		return []string{mdFile}, nil

	case Text:
		txtFile := base + "_tracks.txt"
		if err := writeFile(txtFile, snapshot, Text); err != nil {
			return nil, err
		}
		return []string{txtFile}, nil

	default:
		jsonFile := base + ".json"
		if err := writeFile(jsonFile, snapshot, JSON); err != nil {
			return nil, err
		}
		return []string{jsonFile}, nil
	}
}

func writeFile(path string, snapshot *models.PlaylistSnapshot, format Format) error {
	data, err := Encode(snapshot, format)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

// Slug lowercases name and replaces runs of anything but letters and digits with a single hyphen.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "playlist"
	}
	return slug
}
