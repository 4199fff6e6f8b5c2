package domainerrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "skdm/pkg/domain-errors"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := dErrors.New(dErrors.CodeNotFound, "declaration not found")

	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	assert.Equal(t, "declaration not found", dErrors.MessageOf(err))
	assert.Equal(t, "not_found: declaration not found", err.Error())
}

func TestWrapPreservesChain(t *testing.T) {
	cause := errors.New("sql: no rows in result set")
	err := dErrors.Wrap(cause, dErrors.CodeNotFound, "declaration not found")

	assert.ErrorIs(t, err, cause)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	// A further fmt wrap must not lose the code.
	outer := fmt.Errorf("get detail: %w", err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(outer))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, dErrors.Wrap(nil, dErrors.CodeInternal, "ignored"))
}

func TestCodeOfForeignErrorIsInternal(t *testing.T) {
	err := errors.New("driver: bad connection")

	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
	assert.False(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Empty(t, dErrors.MessageOf(err))
}
