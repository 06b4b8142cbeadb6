package domain

import "time"

const RoleUser = "user"

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	Role         string    `json:"role" dynamodbav:"role"`
	Verified     bool      `json:"is_verified" dynamodbav:"is_verified"`
	CreatedAt    time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// PublicUser is the subset of a user returned to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.UserID, Name: u.Name, Email: u.Email}
}

// UserUpdate lists the mutable user fields; nil means unchanged.
type UserUpdate struct {
	Verified     *bool
	PasswordHash *string
}

func (u UserUpdate) Empty() bool {
	return u.Verified == nil && u.PasswordHash == nil
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=255"`
}

type VerifyRequest struct {
	OTP string `json:"otp" validate:"required,len=4,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyForgotPasswordRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password" validate:"omitempty,min=6,max=255"`
}
