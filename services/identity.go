// Package services holds the credential store, the file registry and the
// ownership guard. Every call that acts on behalf of a user takes an explicit
// Identity instead of reading ambient request state.
package services

import "github.com/cppla/filebox/models"

// Identity is the authenticated principal of a request.
type Identity struct {
	ID          uint
	Email       string
	DisplayName string
}

// IdentityOf builds the Identity for a persisted user.
func IdentityOf(u *models.User) Identity {
	return Identity{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}
