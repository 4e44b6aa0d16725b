// Package httpx provides HTTP response utilities around the API envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Error   any    `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Respond writes a successful or failed envelope depending on status.
func Respond(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

// Fail writes an error envelope carrying an optional error payload.
func Fail(w http.ResponseWriter, status int, message string, detail any) {
	JSON(w, status, Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
