package model

import (
	"net/http"
	"time"
)

// HTTPErrorInfo is the error body returned by the composite API and by the
// collaborators on failure.
type HTTPErrorInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Error     string    `json:"error,omitempty"`
	Message   string    `json:"message"`
}

// NewHTTPErrorInfo stamps an error body with the current time.
func NewHTTPErrorInfo(status int, path, message string) HTTPErrorInfo {
	return HTTPErrorInfo{
		Timestamp: time.Now().UTC(),
		Path:      path,
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
	}
}
