package refdata

import (
	dErrors "skdm/pkg/domain-errors"
)

// Item is one entry of a reference set: a stable code plus display label.
type Item struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Set names accepted by Lookup. Dispatch is a closed switch, not a table
// name, so a request can never reach an arbitrary relation.
const (
	SetGoodsCategories  = "goods-categories"
	SetCountries        = "countries"
	SetCNCodes          = "cn-codes"
	SetProductionRoutes = "production-routes"
)

// Lookup returns the named reference set. CN codes and production routes
// require a goods category qualifier; the other sets ignore it.
func Lookup(set, category string) ([]Item, error) {
	switch set {
	case SetGoodsCategories:
		items := make([]Item, 0, len(goodsCategoryNames))
		for _, c := range GoodsCategories() {
			items = append(items, Item{Code: c.String(), Label: c.DisplayName()})
		}
		return items, nil

	case SetCountries:
		codes := CountryCodes()
		items := make([]Item, 0, len(codes))
		for _, code := range codes {
			items = append(items, Item{Code: code, Label: countryNames[code]})
		}
		return items, nil

	case SetCNCodes:
		c, err := ParseGoodsCategory(category)
		if err != nil {
			return nil, err
		}
		codes := c.CNCodes()
		items := make([]Item, 0, len(codes))
		for _, code := range codes {
			items = append(items, Item{Code: code, Label: code})
		}
		return items, nil

	case SetProductionRoutes:
		c, err := ParseGoodsCategory(category)
		if err != nil {
			return nil, err
		}
		routes := c.ProductionRoutes()
		items := make([]Item, 0, len(routes))
		for _, route := range routes {
			items = append(items, Item{Code: route, Label: route})
		}
		return items, nil

	default:
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown reference set: "+set)
	}
}
