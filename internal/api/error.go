package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a backend rejection with a known HTTP status. It replaces
// duck-typed probing of error shapes: callers branch on StatusCode via
// errors.As or IsStatus.
type Error struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ToLower(http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, msg)
}

// IsStatus reports whether err wraps an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsNotFound reports whether err is a 404 rejection.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// decodeError builds an *Error from a non-2xx response body. The backend
// serves {"message": ...} where message is a string or an array of
// validation strings, sometimes with a per-field {"errors": {...}} map.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}
	var payload struct {
		Message json.RawMessage   `json:"message"`
		Error   string            `json:"error"`
		Errors  map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Fields = payload.Errors
	if len(payload.Message) > 0 {
		var single string
		if err := json.Unmarshal(payload.Message, &single); err == nil {
			apiErr.Message = single
			return apiErr
		}
		var many []string
		if err := json.Unmarshal(payload.Message, &many); err == nil {
			apiErr.Message = strings.Join(many, "; ")
			return apiErr
		}
	}
	apiErr.Message = payload.Error
	return apiErr
}
