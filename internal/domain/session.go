package domain

import "time"

// TokenPair is the access/refresh token pair issued on register, login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
