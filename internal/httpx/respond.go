// Package httpx holds the small JSON response helpers shared by all
// HTTP handlers.
package httpx

import (
	"net/http"

	"github.com/goccy/go-json"

	svcErr "github.com/emberly-app/emberly/internal/errors"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// OKList writes a success envelope with an explicit element count.
func OKList(w http.ResponseWriter, status int, data any, count int) {
	write(w, status, envelope{Success: true, Data: data, Count: &count})
}

// Error maps a service error onto status code and message via the
// central mapper.
func Error(w http.ResponseWriter, err error) {
	status, msg := svcErr.Map(err)
	write(w, status, envelope{Success: false, Error: msg})
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
