package services

import "github.com/cppla/filebox/models"

// Authorize allows access to f only for its owner. There is no sharing, so
// ownership is the whole policy.
func Authorize(id Identity, f *models.File) error {
	if f == nil || id.ID == 0 || f.OwnerID != id.ID {
		return ErrForbidden
	}
	return nil
}
