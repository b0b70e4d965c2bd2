package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrUnauthorized matches any 401 response from an authenticated endpoint.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response from the backend.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string

	authenticated bool
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses to requests
// that carried a session. A 401 from the token endpoint is bad credentials.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.authenticated && e.Status == http.StatusUnauthorized
}

// StatusCode returns the HTTP status of err if it is an *Error, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// errorBody covers both {"detail": ...} and {"error": ...} bodies. detail may
// be a string or a list of validation problems.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

func readError(resp *http.Response, method, path string) *Error {
	e := &Error{Method: method, Path: path, Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return e
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		e.Detail = string(bytes.TrimSpace(data))
		return e
	}

	switch {
	case len(body.Detail) > 0:
		var s string
		if err := json.Unmarshal(body.Detail, &s); err == nil {
			e.Detail = s
		} else {
			var buf bytes.Buffer
			if json.Compact(&buf, body.Detail) == nil {
				e.Detail = buf.String()
			}
		}
	case body.Error != "":
		e.Detail = body.Error
	}
	return e
}
