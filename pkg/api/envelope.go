package api

import (
	"net/http"

	"github.com/go-chi/render"
)

// Envelope is the uniform response body. Endpoints with a richer success
// shape embed the same success/error fields.
type Envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteError writes an error envelope with the given status.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Error: msg})
}
