package service

import "errors"

var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrEmailInUse is returned by Signup when the email is already registered.
	ErrEmailInUse = errors.New("email already in use")
	// ErrUserNotFound is returned when no user matches the email or token identity.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials indicates that the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned when no token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidToken is returned for malformed, tampered, or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNotificationFailed marks a welcome email that could not be handed off.
	ErrNotificationFailed = errors.New("notification failed")
	// ErrUploadFailed wraps media storage failures.
	ErrUploadFailed = errors.New("upload failed")
)
