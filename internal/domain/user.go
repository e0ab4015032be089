package domain

import "time"

// User represents an account that can sign in to the system.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Public returns a copy of the user without credential material.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	return &User{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
