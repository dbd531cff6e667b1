package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/riteshkumar/core-ledger/internal/models"
)

const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("request body must contain a single JSON object")

// WriteJSON encodes data before touching the response so an encoding failure
// still yields a well-formed 500.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	var body []byte
	if data != nil {
		var err error
		body, err = json.Marshal(data)
		if err != nil {
			status = http.StatusInternalServerError
			body = []byte(`{"error":"internal server error","message":"","detail":"internal server error"}`)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		w.Write(append(body, '\n'))
	}
}

// WriteError writes the ledger's error envelope. The request id set by the
// router middleware is echoed so clients can quote it.
// Detail repeats the human-readable text for clients that only read detail.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	detail := message
	if detail == "" {
		detail = code
	}
	WriteJSON(w, status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		Detail:    detail,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}

// DecodeJSON reads a single JSON object from the request body, rejecting
// unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
