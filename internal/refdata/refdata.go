// Package refdata holds the closed reference sets used by declarations:
// CBAM goods categories, their CN codes and production routes, and the
// country list. The sets are compiled in rather than stored, so lookups
// cannot drift between environments.
package refdata

import (
	"sort"

	dErrors "skdm/pkg/domain-errors"
)

// GoodsCategory is one of the six CBAM transitional-phase sectors.
type GoodsCategory string

const (
	GoodsCement      GoodsCategory = "CEMENT"
	GoodsIronSteel   GoodsCategory = "IRON_STEEL"
	GoodsAluminium   GoodsCategory = "ALUMINIUM"
	GoodsFertilizers GoodsCategory = "FERTILIZERS"
	GoodsHydrogen    GoodsCategory = "HYDROGEN"
	GoodsElectricity GoodsCategory = "ELECTRICITY"
)

var goodsCategoryNames = map[GoodsCategory]string{
	GoodsCement:      "Cement",
	GoodsIronSteel:   "Iron and Steel",
	GoodsAluminium:   "Aluminium",
	GoodsFertilizers: "Fertilizers",
	GoodsHydrogen:    "Hydrogen",
	GoodsElectricity: "Electricity",
}

// Representative CN codes per category. One category can carry many codes;
// declarations reference a concrete code from this set.
var cnCodesByCategory = map[GoodsCategory][]string{
	GoodsCement:      {"2523 10 00", "2523 21 00", "2523 29 00", "2523 90 00"},
	GoodsIronSteel:   {"7206 10 00", "7207 11 00", "7208 10 00", "7301 10 00"},
	GoodsAluminium:   {"7601 10 00", "7601 20 00", "7604 10 10", "7606 11 10"},
	GoodsFertilizers: {"2808 00 00", "3102 10 10", "3105 20 10"},
	GoodsHydrogen:    {"2804 10 00"},
	GoodsElectricity: {"2716 00 00"},
}

var productionRoutesByCategory = map[GoodsCategory][]string{
	GoodsCement:      {"Clinker route", "Blended cement route"},
	GoodsIronSteel:   {"Blast furnace route", "Electric arc furnace route", "Direct reduction route"},
	GoodsAluminium:   {"Primary smelting", "Secondary remelting"},
	GoodsFertilizers: {"Haber-Bosch route", "Nitric acid route"},
	GoodsHydrogen:    {"Steam methane reforming", "Electrolysis"},
	GoodsElectricity: {"Grid import"},
}

func ParseGoodsCategory(s string) (GoodsCategory, error) {
	category := GoodsCategory(s)
	if _, ok := goodsCategoryNames[category]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown goods category: "+s)
	}
	return category, nil
}

func (c GoodsCategory) String() string { return string(c) }

// DisplayName returns the human-readable sector name used in rendered
// documents.
func (c GoodsCategory) DisplayName() string { return goodsCategoryNames[c] }

func (c GoodsCategory) IsValid() bool {
	_, ok := goodsCategoryNames[c]
	return ok
}

// CNCodes returns the category's CN codes in a stable order.
func (c GoodsCategory) CNCodes() []string {
	codes := cnCodesByCategory[c]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// HasCNCode reports whether code belongs to the category.
func (c GoodsCategory) HasCNCode(code string) bool {
	for _, known := range cnCodesByCategory[c] {
		if known == code {
			return true
		}
	}
	return false
}

// ProductionRoutes returns the category's known production routes.
func (c GoodsCategory) ProductionRoutes() []string {
	routes := productionRoutesByCategory[c]
	out := make([]string, len(routes))
	copy(out, routes)
	return out
}

// GoodsCategories returns all categories sorted by code.
func GoodsCategories() []GoodsCategory {
	out := make([]GoodsCategory, 0, len(goodsCategoryNames))
	for c := range goodsCategoryNames {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
