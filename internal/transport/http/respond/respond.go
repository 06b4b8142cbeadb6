// Package respond writes the JSON envelopes shared by handlers and middleware
// and maps errors to HTTP responses in one place.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/estore-auth/internal/domain"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgTokenNotActive = "Token is not active yet. Please try again later."
	MsgInvalidToken   = "Invalid token. Please log in again."
	MsgInternal       = "Something went wrong, please try again!"
)

// SuccessEnvelope wraps every successful response.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 success envelope. data may be nil.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, SuccessEnvelope{Success: true, Data: data})
}

// Classify turns any error into the client-facing domain error: token
// failures first, then domain errors, then a generic internal error.
func Classify(err error) *domain.Error {
	if errors.Is(err, jwtinfra.ErrInvalidToken) {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return domain.Unauthorized(MsgSessionExpired)
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return domain.Unauthorized(MsgTokenNotActive)
		default:
			return domain.Unauthorized(MsgInvalidToken)
		}
	}
	if de, ok := domain.AsError(err); ok {
		if de.Kind == domain.KindInternal && de.Message == "" {
			return domain.Internal(MsgInternal)
		}
		return de
	}
	return domain.Internal(MsgInternal)
}

// Responder logs and writes error responses.
type Responder struct {
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Responder {
	return &Responder{log: log}
}

// Error classifies err, logs it with the request line and writes the error
// envelope.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	de := Classify(err)
	status := de.Status()

	entry := rs.log.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"url":    r.URL.String(),
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	JSON(w, status, ErrorEnvelope{Status: "error", Message: de.Message, Details: de.Details})
}
