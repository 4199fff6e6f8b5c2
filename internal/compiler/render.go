package compiler

import (
	"encoding/xml"
	"fmt"

	"github.com/shopspring/decimal"
)

// The rendered document is canonical: section order is fixed by the struct
// layout, children arrive pre-sorted from the snapshot, decimals use four
// fractional digits, dates use 2006-01-02, and nothing volatile (clock
// readings, random ids) enters the bytes. Identical snapshots therefore
// produce identical bytes and identical hashes.

const (
	declarationNamespace = "urn:eu:ec:cbam:declaration:v1"
	documentVersion      = "1.0"
	generatorName        = "Ecosfer SKDM Platform v2.0"

	dateLayout = "2006-01-02"
)

type document struct {
	XMLName      xml.Name                  `xml:"CBAMDeclaration"`
	Namespace    string                    `xml:"xmlns,attr"`
	Version      string                    `xml:"version,attr"`
	Header       declarationHeader         `xml:"DeclarationHeader"`
	Declarant    declarantInformation      `xml:"DeclarantInformation"`
	Goods        goodsImported             `xml:"GoodsImported"`
	Emissions    emissionsSummary          `xml:"EmissionsSummary"`
	Certificates certificatesSurrendered   `xml:"CertificatesSurrendered"`
	Adjustments  freeAllocationAdjustments `xml:"FreeAllocationAdjustments"`
	Verification verificationStatement     `xml:"VerificationStatement"`
	Integrity    integrityCheck            `xml:"IntegrityCheck"`
}

// measure is a decimal value with a unit attribute.
type measure struct {
	Unit  string `xml:"unit,attr,omitempty"`
	Value string `xml:",chardata"`
}

type declarationHeader struct {
	DeclarationID                string   `xml:"DeclarationId"`
	ReportingYear                int      `xml:"ReportingYear"`
	Status                       string   `xml:"Status"`
	SubmissionDate               string   `xml:"SubmissionDate,omitempty"`
	TotalEmbeddedEmissions       *measure `xml:"TotalEmbeddedEmissions,omitempty"`
	TotalCertificatesSurrendered *int     `xml:"TotalCertificatesSurrendered,omitempty"`
	Notes                        string   `xml:"Notes,omitempty"`
}

type declarantInformation struct {
	CompanyName             string `xml:"CompanyName"`
	TaxIdentificationNumber string `xml:"TaxIdentificationNumber,omitempty"`
	Address                 string `xml:"Address,omitempty"`
	Country                 string `xml:"Country,omitempty"`
}

type goodsImported struct {
	Count int        `xml:"count,attr"`
	Goods []goodLine `xml:"Good"`
}

type goodLine struct {
	GoodsCategory        string            `xml:"GoodsCategory"`
	CNCode               string            `xml:"CNCode,omitempty"`
	CountryOfOrigin      string            `xml:"CountryOfOrigin,omitempty"`
	InstallationOfOrigin string            `xml:"InstallationOfOrigin,omitempty"`
	ProductionRoute      string            `xml:"ProductionRoute,omitempty"`
	QuantityImported     *measure          `xml:"QuantityImported,omitempty"`
	EmbeddedEmissions    embeddedEmissions `xml:"EmbeddedEmissions"`
}

type embeddedEmissions struct {
	TotalEmbeddedEmissions measure `xml:"TotalEmbeddedEmissions"`
	DirectEmissions        measure `xml:"DirectEmissions"`
	IndirectEmissions      measure `xml:"IndirectEmissions"`
}

type emissionsSummary struct {
	TotalDirectEmissions   measure `xml:"TotalDirectEmissions"`
	TotalIndirectEmissions measure `xml:"TotalIndirectEmissions"`
	TotalEmbeddedEmissions measure `xml:"TotalEmbeddedEmissions"`
}

type certificatesSurrendered struct {
	Count         int               `xml:"count,attr"`
	TotalQuantity int               `xml:"totalQuantity,attr"`
	Certificates  []certificateLine `xml:"Certificate"`
}

type certificateLine struct {
	CertificateNumber string `xml:"CertificateNumber"`
	Quantity          int    `xml:"Quantity"`
	RemainingQuantity int    `xml:"RemainingQuantity"`
	SurrenderDate     string `xml:"SurrenderDate"`
	PricePerTonne     *price `xml:"PricePerTonne,omitempty"`
}

type price struct {
	Currency string `xml:"currency,attr"`
	Value    string `xml:",chardata"`
}

type freeAllocationAdjustments struct {
	Count       int              `xml:"count,attr"`
	Adjustments []adjustmentLine `xml:"Adjustment"`
}

type adjustmentLine struct {
	Type          string `xml:"Type"`
	Amount        string `xml:"Amount"`
	Description   string `xml:"Description,omitempty"`
	EffectiveDate string `xml:"EffectiveDate"`
}

type verificationStatement struct {
	Status              string `xml:"Status"`
	VerifierName        string `xml:"VerifierName,omitempty"`
	AccreditationNumber string `xml:"AccreditationNumber,omitempty"`
	Opinion             string `xml:"Opinion,omitempty"`
	VerificationPeriod  string `xml:"VerificationPeriod,omitempty"`
	IssueDate           string `xml:"IssueDate,omitempty"`
	Notes               string `xml:"Notes,omitempty"`
}

type integrityCheck struct {
	Algorithm   string `xml:"Algorithm"`
	GeneratedBy string `xml:"GeneratedBy"`
}

func fixed(d decimal.Decimal) string { return d.StringFixed(4) }

func tonnes(d decimal.Decimal) measure {
	return measure{Unit: "tCO2e", Value: fixed(d)}
}

// render serializes the snapshot into the canonical declaration document.
func render(snapshot *Snapshot) ([]byte, error) {
	d := snapshot.Declaration

	doc := document{
		Namespace: declarationNamespace,
		Version:   documentVersion,
		Integrity: integrityCheck{Algorithm: "SHA-256", GeneratedBy: generatorName},
	}

	doc.Header = declarationHeader{
		DeclarationID: d.ID.String(),
		ReportingYear: d.Year,
		Status:        d.Status.String(),
		Notes:         d.Notes,
	}
	if d.SubmissionDate != nil {
		doc.Header.SubmissionDate = d.SubmissionDate.UTC().Format(dateLayout)
	}
	if d.TotalEmissions != nil {
		m := tonnes(*d.TotalEmissions)
		doc.Header.TotalEmbeddedEmissions = &m
	}
	doc.Header.TotalCertificatesSurrendered = d.TotalCertificates

	if snapshot.Company != nil {
		doc.Declarant = declarantInformation{
			CompanyName:             snapshot.Company.Name,
			TaxIdentificationNumber: snapshot.Company.TaxNumber,
			Address:                 snapshot.Company.Address,
			Country:                 snapshot.Company.Country,
		}
	}

	totalDirect, totalIndirect, totalEmbedded := decimal.Zero, decimal.Zero, decimal.Zero
	doc.Goods.Count = len(snapshot.Goods)
	for _, good := range snapshot.Goods {
		line := goodLine{
			GoodsCategory:        good.Category.DisplayName(),
			CNCode:               good.CNCode,
			CountryOfOrigin:      good.CountryOfOrigin,
			InstallationOfOrigin: good.Installation,
			ProductionRoute:      good.ProductionRoute,
			EmbeddedEmissions: embeddedEmissions{
				TotalEmbeddedEmissions: tonnes(good.Total),
				DirectEmissions:        tonnes(good.Direct),
				IndirectEmissions:      tonnes(good.Indirect),
			},
		}
		if !good.Quantity.IsZero() {
			m := measure{Unit: "t", Value: fixed(good.Quantity)}
			line.QuantityImported = &m
		}
		doc.Goods.Goods = append(doc.Goods.Goods, line)
		totalDirect = totalDirect.Add(good.Direct)
		totalIndirect = totalIndirect.Add(good.Indirect)
		totalEmbedded = totalEmbedded.Add(good.Total)
	}
	doc.Emissions = emissionsSummary{
		TotalDirectEmissions:   tonnes(totalDirect),
		TotalIndirectEmissions: tonnes(totalIndirect),
		TotalEmbeddedEmissions: tonnes(totalEmbedded),
	}

	surrenderedByCert := make(map[string]int)
	for _, line := range snapshot.Surrenders {
		surrenderedByCert[line.CertificateNo] += line.Quantity
	}
	totalQuantity := 0
	for _, line := range snapshot.Surrenders {
		totalQuantity += line.Quantity
		certificate := certificateLine{
			CertificateNumber: line.CertificateNo,
			Quantity:          line.Quantity,
			RemainingQuantity: line.CertificateQuantity - surrenderedByCert[line.CertificateNo],
			SurrenderDate:     line.SurrenderDate.UTC().Format(dateLayout),
		}
		if !line.PricePerTonne.IsZero() {
			certificate.PricePerTonne = &price{Currency: "EUR", Value: fixed(line.PricePerTonne)}
		}
		doc.Certificates.Certificates = append(doc.Certificates.Certificates, certificate)
	}
	doc.Certificates.Count = len(snapshot.Surrenders)
	doc.Certificates.TotalQuantity = totalQuantity

	doc.Adjustments.Count = len(snapshot.Adjustments)
	for _, adjustment := range snapshot.Adjustments {
		doc.Adjustments.Adjustments = append(doc.Adjustments.Adjustments, adjustmentLine{
			Type:          adjustment.Type.String(),
			Amount:        fixed(adjustment.Amount),
			Description:   adjustment.Description,
			EffectiveDate: adjustment.EffectiveDate.UTC().Format(dateLayout),
		})
	}

	if snapshot.Verification == nil {
		doc.Verification = verificationStatement{Status: "NOT_PROVIDED"}
	} else {
		v := snapshot.Verification
		doc.Verification = verificationStatement{
			Status:              "PROVIDED",
			VerifierName:        v.VerifierName,
			AccreditationNumber: v.AccreditationNo,
			Opinion:             v.Opinion.String(),
			VerificationPeriod:  v.Period,
			Notes:               v.Notes,
		}
		if !v.IssueDate.IsZero() {
			doc.Verification.IssueDate = v.IssueDate.UTC().Format(dateLayout)
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal declaration document: %w", err)
	}
	artifact := make([]byte, 0, len(xml.Header)+len(body)+1)
	artifact = append(artifact, xml.Header...)
	artifact = append(artifact, body...)
	artifact = append(artifact, '\n')
	return artifact, nil
}
