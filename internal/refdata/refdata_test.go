package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "skdm/pkg/domain-errors"
)

func TestEveryCategoryHasCodesAndRoutes(t *testing.T) {
	for _, c := range GoodsCategories() {
		assert.NotEmpty(t, c.CNCodes(), "category %s has no CN codes", c)
		assert.NotEmpty(t, c.ProductionRoutes(), "category %s has no routes", c)
		assert.NotEmpty(t, c.DisplayName())
	}
}

func TestParseGoodsCategory(t *testing.T) {
	c, err := ParseGoodsCategory("IRON_STEEL")
	require.NoError(t, err)
	assert.Equal(t, GoodsIronSteel, c)
	assert.True(t, c.HasCNCode("7206 10 00"))
	assert.False(t, c.HasCNCode("2523 10 00"))

	_, err = ParseGoodsCategory("TIMBER")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestLookupDispatch(t *testing.T) {
	categories, err := Lookup(SetGoodsCategories, "")
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	countries, err := Lookup(SetCountries, "")
	require.NoError(t, err)
	assert.NotEmpty(t, countries)

	codes, err := Lookup(SetCNCodes, "CEMENT")
	require.NoError(t, err)
	assert.Contains(t, codes, Item{Code: "2523 10 00", Label: "2523 10 00"})

	_, err = Lookup(SetCNCodes, "TIMBER")
	require.Error(t, err)

	_, err = Lookup("arbitrary_table", "")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestLookupIsDeterministic(t *testing.T) {
	first, err := Lookup(SetCountries, "")
	require.NoError(t, err)
	second, err := Lookup(SetCountries, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
