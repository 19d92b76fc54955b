// Package httpapi exposes the HTTP API layer of the service.
package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/fairyhunter13/product-composite-service/internal/apierr"
	"github.com/fairyhunter13/product-composite-service/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError writes an error-info body with the given status code.
func WriteJSONError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, model.NewHTTPErrorInfo(status, r.URL.Path, message))
}

// WriteError classifies err and writes it. Unexpected failures are logged
// with their cause.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	e := apierr.Classify(err)
	if e.Kind == apierr.Unexpected {
		log.Error("request_failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
	WriteJSONError(w, r, e.Kind.HTTPStatus(), e.Error())
}
