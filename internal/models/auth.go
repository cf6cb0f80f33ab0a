package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role identifies the kind of authenticated actor.
type Role string

const (
	RoleTutor Role = "tutor"
	RoleAdmin Role = "admin"
)

// TutorSignupRequest registers a new tutor with phone + PIN credentials.
type TutorSignupRequest struct {
	Name       string   `json:"name" validate:"required,min=2"`
	Phone      string   `json:"phone" validate:"required,min=10"`
	PIN        string   `json:"pin" validate:"required,min=4"`
	SubjectIDs []string `json:"subject_ids" validate:"required,min=1"`
}

// TutorLoginRequest authenticates a tutor.
type TutorLoginRequest struct {
	Phone string `json:"phone" validate:"required"`
	PIN   string `json:"pin" validate:"required"`
}

// AdminLoginRequest authenticates the admin role.
type AdminLoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued bearer token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	Role        Role      `json:"role"`
	ActorID     string    `json:"actor_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// JWTClaims is the access-token payload.
type JWTClaims struct {
	ActorID string `json:"actor_id"`
	Role    Role   `json:"role"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}
