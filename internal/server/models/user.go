// Package models defines server-side data models persisted in the database.
package models

// User is an account. Token is the long-lived session bearer credential;
// TempToken is the separate credential used only during the activation and
// password-reset handshakes. TempToken is empty once it has been consumed.
type User struct {
	ID             int64
	Email          string
	Name           string
	HashedPassword string
	Token          string
	TempToken      string
	ActivationCode string
	IsActive       bool
	IsAdmin        bool
}

// UserPatch carries the optional profile changes of an update.
// Empty strings mean "leave unchanged".
type UserPatch struct {
	Name     string
	Email    string
	Password string
}
