package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	conflict := NewConflict("username already in use")
	wrapped := fmt.Errorf("register: %w", conflict)
	de := ToDomainError(wrapped)
	require.NotNil(t, de)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
	assert.Equal(t, "CONFLICT", de.Code)

	cause := errors.New("disk full")
	de = ToDomainError(cause)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, "internal server error", de.Message)
	assert.ErrorIs(t, de, cause)
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(map[string]string{"email": "must be a valid email"})

	de := ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "must be a valid email", de.Fields["email"])

	empty := ToDomainError(NewValidationError(nil))
	assert.NotNil(t, empty.Fields)
}

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "user not found", NewNotFound("user", nil).Error())
	assert.Equal(t, "user not found: no rows", NewNotFound("user", errors.New("no rows")).Error())
}
