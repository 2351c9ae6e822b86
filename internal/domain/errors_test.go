package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsAppError(t *testing.T) {
	assert.Nil(t, AsAppError(nil))

	appErr := ErrNotFound("wallet", "abc")
	assert.Same(t, appErr, AsAppError(appErr))

	wrapped := AsAppError(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", wrapped.Code)
	assert.Equal(t, 500, wrapped.Status)
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("db exploded")
	err := ErrInternal("query failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "query failed")
}
