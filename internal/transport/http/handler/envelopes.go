package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/estore-auth/internal/domain"
)

const maxBodyBytes = 1 << 20

// UserEnvelope is the data payload of login responses.
type UserEnvelope struct {
	User domain.PublicUser `json:"user"`
}

// MessageEnvelope is the body of the root and health endpoints.
type MessageEnvelope struct {
	Message string `json:"message"`
}

// decodeJSON reads the request body into v. An empty body leaves v at its
// zero value so required-field checks report the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return domain.BadRequest("Invalid request body")
	}
	return nil
}
