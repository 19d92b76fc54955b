package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fairyhunter13/product-composite-service/internal/model"
)

// StatusError is a status-coded failure returned by a collaborator.
type StatusError struct {
	Status int
	Method string
	URL    string
	Body   []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
	if e.URL != "" {
		msg += fmt.Sprintf(" from %s %s", e.Method, e.URL)
	}
	return msg
}

// Message extracts the message embedded in the error body, falling back to
// the error's own text when the body is not an error-info record.
func (e *StatusError) Message() string {
	var info model.HTTPErrorInfo
	if len(e.Body) > 0 && json.Unmarshal(e.Body, &info) == nil && strings.TrimSpace(info.Message) != "" {
		return info.Message
	}
	return e.Error()
}

// Classify maps a collaborator failure onto the taxonomy. Already classified
// errors pass through unchanged; anything else is Unexpected and keeps the
// original error as its cause. A nil error classifies to nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusNotFound:
			return &Error{Kind: NotFound, Message: se.Message(), Err: err}
		case http.StatusUnprocessableEntity:
			return &Error{Kind: InvalidInput, Message: se.Message(), Err: err}
		default:
			return &Error{Kind: Unexpected, Message: se.Message(), Err: err}
		}
	}
	return &Error{Kind: Unexpected, Err: err}
}
