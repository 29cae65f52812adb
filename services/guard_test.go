package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/filebox/models"
)

func TestAuthorize(t *testing.T) {
	f := &models.File{ID: 7, OwnerID: 1}

	assert.NoError(t, Authorize(Identity{ID: 1}, f))
	assert.ErrorIs(t, Authorize(Identity{ID: 2}, f), ErrForbidden)
	assert.ErrorIs(t, Authorize(Identity{}, f), ErrForbidden)
	assert.ErrorIs(t, Authorize(Identity{ID: 1}, nil), ErrForbidden)
}
