package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidRole        = errors.New("auth: invalid role")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrWeakPassword       = errors.New("auth: password must be at least 8 characters")
)
