package refdata

import (
	"sort"

	dErrors "skdm/pkg/domain-errors"
)

// Country codes follow ISO 3166-1 alpha-2. The set covers the origins the
// platform's importers actually declare from; unknown codes are rejected at
// the edge instead of silently stored.
var countryNames = map[string]string{
	"TR": "Türkiye",
	"CN": "China",
	"IN": "India",
	"RU": "Russia",
	"UA": "Ukraine",
	"RS": "Serbia",
	"EG": "Egypt",
	"DZ": "Algeria",
	"MA": "Morocco",
	"GB": "United Kingdom",
	"NO": "Norway",
	"CH": "Switzerland",
	"US": "United States",
	"BR": "Brazil",
	"ZA": "South Africa",
	"KR": "South Korea",
	"JP": "Japan",
	"VN": "Vietnam",
	"ID": "Indonesia",
	"SA": "Saudi Arabia",
	"AE": "United Arab Emirates",
}

// CountryName resolves an ISO code to its display name.
func CountryName(code string) (string, error) {
	name, ok := countryNames[code]
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown country code: "+code)
	}
	return name, nil
}

func IsValidCountry(code string) bool {
	_, ok := countryNames[code]
	return ok
}

// CountryCodes returns all known codes sorted.
func CountryCodes() []string {
	out := make([]string, 0, len(countryNames))
	for code := range countryNames {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
