package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

func TestParseTenantID(t *testing.T) {
	want := uuid.New()

	got, err := id.ParseTenantID(want.String())
	require.NoError(t, err)
	assert.Equal(t, want.String(), got.String())
	assert.False(t, got.IsNil())
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"garbage":  "not-a-uuid",
		"nil uuid": uuid.Nil.String(),
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := id.ParseDeclarationID(input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestNewIDsAreDistinct(t *testing.T) {
	a := id.NewDeclarationID()
	b := id.NewDeclarationID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
}
