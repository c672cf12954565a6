package auth

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrInvalidState       = errors.New("invalid or expired oauth state")
	ErrNoVerifiedEmail    = errors.New("no verified email on github account")
)
