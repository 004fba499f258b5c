// Package respond holds the JSON helpers shared by every HTTP handler.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ayush/event-registration/backend/internal/logging"
)

const maxBodyBytes = 1 << 20

var (
	ErrEmptyBody   = errors.New("request body is empty")
	ErrInvalidBody = errors.New("invalid request body")
)

// BodyError reports a body the decoder could not read. Its message is
// always ErrInvalidBody; Cause keeps the decoder's detail for logs.
type BodyError struct {
	Cause error
}

func (e *BodyError) Error() string { return ErrInvalidBody.Error() }

func (e *BodyError) Unwrap() []error { return []error{ErrInvalidBody, e.Cause} }

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody carries a human readable success message.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Message: msg})
}

// Decode reads a JSON body of at most 1 MiB into dst.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return &BodyError{Cause: err}
	}
	return nil
}

// DecodeFailed answers 400 for an error returned by Decode and logs the
// decoder detail the client does not see.
func DecodeFailed(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var be *BodyError
	if errors.As(err, &be) && logger != nil {
		logger.Debug(r.Context(), "request body rejected", "err", be.Cause)
	}
	Error(w, http.StatusBadRequest, err.Error())
}
