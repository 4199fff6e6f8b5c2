package compiler

import (
	"fmt"

	declmodels "skdm/internal/declaration/models"
)

// validate applies the business rules to a snapshot. Fatal errors stop the
// run before rendering; warnings travel with a successful result.
func validate(snapshot *Snapshot) (fatal, warnings []string) {
	d := snapshot.Declaration

	if d.Year < 2023 || d.Year > 2035 {
		fatal = append(fatal, fmt.Sprintf("reporting year %d is outside valid range (2023-2035)", d.Year))
	}

	if d.TotalEmissions != nil && d.TotalEmissions.IsNegative() {
		fatal = append(fatal, fmt.Sprintf("negative total emissions %s on declaration", d.TotalEmissions.String()))
	}

	if len(snapshot.Goods) == 0 {
		fatal = append(fatal, "no goods mapping present")
	}
	for _, good := range snapshot.Goods {
		if good.Direct.IsNegative() || good.Indirect.IsNegative() || good.Total.IsNegative() {
			fatal = append(fatal, fmt.Sprintf("negative emissions for goods category %s", good.Category))
		}
		if good.CNCode == "" {
			warnings = append(warnings, fmt.Sprintf("CN code is missing for goods category %s", good.Category))
		}
	}

	// Per-certificate surrender totals may never exceed the certificate
	// quantity.
	surrenderedByCert := make(map[string]int)
	certQuantity := make(map[string]int)
	totalSurrendered := 0
	for _, line := range snapshot.Surrenders {
		surrenderedByCert[line.CertificateNo] += line.Quantity
		certQuantity[line.CertificateNo] = line.CertificateQuantity
		totalSurrendered += line.Quantity
	}
	for certificateNo, surrendered := range surrenderedByCert {
		if surrendered > certQuantity[certificateNo] {
			fatal = append(fatal, fmt.Sprintf("surrendered quantity %d exceeds certificate %s quantity %d",
				surrendered, certificateNo, certQuantity[certificateNo]))
		}
	}
	if d.TotalCertificates != nil && totalSurrendered != *d.TotalCertificates {
		warnings = append(warnings, fmt.Sprintf("certificate surrender total (%d) doesn't match declaration total (%d)",
			totalSurrendered, *d.TotalCertificates))
	}

	if snapshot.Company == nil {
		warnings = append(warnings, "company profile is missing")
	}

	// A declaration that has left DRAFT must carry a verification opinion;
	// on a draft the absence is only a warning.
	if snapshot.Verification == nil || snapshot.Verification.Opinion == "" {
		if d.Status == declmodels.StatusDraft {
			warnings = append(warnings, "verification statement is missing")
		} else {
			fatal = append(fatal, "verification opinion is required once the declaration is submitted")
		}
	}

	return fatal, warnings
}
