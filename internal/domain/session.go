package domain

import "strings"

// User is the identity of the signed-in person.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GuestUser is the fixed identity used by guest login.
var GuestUser = User{Email: "guest@docaccess.local", Name: "Guest"}

// Session is a snapshot of the authentication state.
// User is non-nil iff IsAuthenticated is true.
type Session struct {
	IsAuthenticated bool
	User            *User
}

// AuthRecord is the persisted form of a Session under StorageKeyAuth.
type AuthRecord struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// Valid reports whether the record satisfies the session invariant.
func (r *AuthRecord) Valid() bool {
	return r != nil && r.IsAuthenticated && r.User != nil
}

// DisplayNameFromEmail derives a display name from the local part of email.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
