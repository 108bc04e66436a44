package domain

import "time"

type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Profile is the record written to the users collection at sign-up.
type Profile struct {
	UID       string
	Email     string
	FirstName string
	LastName  string
	Gender    string
	Birthdate string
}

func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}

// Account holds login credentials; the hash never leaves the auth layer.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
