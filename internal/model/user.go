package model

import "time"

const (
	RolePatient   = "patient"
	RoleCaregiver = "caregiver"
	RoleAdmin     = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
}

// DisplayName is the name shown on appointment views.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}
