package http

import (
	"github.com/estore-auth/internal/application/auth"
	"github.com/estore-auth/internal/application/session"
	jwtinfra "github.com/estore-auth/internal/infrastructure/jwt"
	"github.com/sirupsen/logrus"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Auth        auth.Service
	Sessions    session.Service
	JWTProvider *jwtinfra.Provider
	Log         logrus.FieldLogger
}
