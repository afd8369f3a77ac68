package domain

import "time"

// User is the persisted account record backing a Principal.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal converts the stored account into the identity view used by authentication.
func (u *User) Principal() *Principal {
	return &Principal{
		Subject:      u.Username,
		PasswordHash: u.PasswordHash,
		Active:       u.Active,
		Roles:        append([]Role(nil), u.Roles...),
	}
}
