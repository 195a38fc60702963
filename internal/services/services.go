// package services contains the HTTP clients spinlist talks to: the Spotify Web API and station feeds.
package services

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/spinlist/internal/shared"
)

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	StatusCode int
	Method     string
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap lets callers match every APIError against [shared.ErrAPIRequest], and 404s against [shared.ErrPlaylistNotFound].
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	if e.StatusCode == http.StatusNotFound && strings.Contains(e.Endpoint, "/playlists/") {
		errs = append(errs, shared.ErrPlaylistNotFound)
	}
	return errs
}

// Transient reports whether the request may succeed if repeated: rate limiting and gateway failures.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether any error in err's chain is marked transient.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	return errors.As(err, &t) && t.Transient()
}

// newAPIError builds an [APIError] from resp, reading the Spotify error envelope when present.
func newAPIError(resp *http.Response, method, endpoint string) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Endpoint: endpoint}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if jsonErr := decodeJSON(body, &envelope); jsonErr == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
