// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/spinlist/internal/models"
)

// SinkCall is one recorded call on a [MockSink].
type SinkCall struct {
	Op          string // replace, append or describe
	PlaylistID  string
	URIs        []string
	Description string
}

// MockSink records playlist writes. FailOn makes the call with that 1-based index return Err.
type MockSink struct {
	Calls  []SinkCall
	FailOn int
	Err    error
}

func (m *MockSink) record(call SinkCall) error {
	m.Calls = append(m.Calls, call)
	if m.FailOn > 0 && len(m.Calls) == m.FailOn {
		if m.Err != nil {
			return m.Err
		}
		return errors.New("sink failed")
	}
	return nil
}

func (m *MockSink) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	return m.record(SinkCall{Op: "replace", PlaylistID: playlistID, URIs: append([]string(nil), uris...)})
}

func (m *MockSink) AppendItems(ctx context.Context, playlistID string, uris []string) error {
	return m.record(SinkCall{Op: "append", PlaylistID: playlistID, URIs: append([]string(nil), uris...)})
}

func (m *MockSink) SetDescription(ctx context.Context, playlistID, description string) error {
	return m.record(SinkCall{Op: "describe", PlaylistID: playlistID, Description: description})
}

// MockFeed returns fixed tracks, or Err.
type MockFeed struct {
	Tracks []models.RawTrack
	Err    error
}

func (m *MockFeed) RecentTracks(ctx context.Context) ([]models.RawTrack, error) {
	return m.Tracks, m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
