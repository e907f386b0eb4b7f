package web

// errors.go maps internal failures to user-facing messages. The technical
// error is logged with the request id; the user sees a short actionable
// sentence, never a raw backend error or stack detail.

import (
	"errors"
	"net/http"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/table"
)

// userMessage translates an error into the sentence shown in the UI.
func userMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return "Your session has expired. Please sign in again."
		case http.StatusForbidden:
			return "You are not allowed to perform this action."
		case http.StatusNotFound:
			return "The record no longer exists. Reload the page."
		case http.StatusConflict:
			return "The record was modified by someone else. Reload and retry."
		default:
			if apiErr.Message != "" {
				return apiErr.Message
			}
			return "The server rejected the request. Please try again."
		}
	}

	switch {
	case errors.Is(err, api.ErrInvalidID):
		return "Invalid record identifier."
	case errors.Is(err, table.ErrCommitInFlight):
		return "This row is already being saved. Please wait."
	case errors.Is(err, table.ErrCreateInProgress):
		return "Finish or cancel the current new row first."
	default:
		return "Something went wrong. Please try again."
	}
}
