// internal/httpjson/httpjson.go
package httpjson

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"sinoman/internal/apperr"
)

// MaxBodyBytes bounds request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Write encodes v with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// InternalMessage replaces the text of internal errors in responses.
const InternalMessage = "internal server error"

// Error writes err using the status its kind maps to. Internal errors are
// logged and reach the client only as InternalMessage.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := apperr.HTTPStatus(err)
	resp := ErrorResponse{
		Status:  status,
		Kind:    apperr.KindOf(err).String(),
		Message: err.Error(),
	}
	if apperr.Is(err, apperr.KindInternal) {
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		resp.Message = InternalMessage
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		resp.Field = e.Field
	}
	Write(w, status, resp)
}

// Decode reads a JSON request body into out. Failures come back as
// validation errors.
func Decode(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "httpjson.Decode", fmt.Errorf("read body: %w", err))
	}
	if len(body) > MaxBodyBytes {
		return apperr.New(apperr.KindValidation, "httpjson.Decode", "request body too large")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.Wrap(apperr.KindValidation, "httpjson.Decode", fmt.Errorf("invalid request body: %w", err))
	}
	return nil
}
