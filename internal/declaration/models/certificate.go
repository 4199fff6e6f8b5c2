package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

// CertificateStatus marks whether a certificate still has surrenderable
// quantity.
type CertificateStatus string

const (
	CertificateActive      CertificateStatus = "ACTIVE"
	CertificateSurrendered CertificateStatus = "SURRENDERED"
)

// Certificate is a purchased CBAM certificate. Quantity is whole
// certificates; price is a decimal, never a float.
type Certificate struct {
	ID            id.CertificateID  `json:"id"`
	TenantID      id.TenantID       `json:"tenant_id"`
	CertificateNo string            `json:"certificate_no"`
	Quantity      int               `json:"quantity"`
	PricePerTonne decimal.Decimal   `json:"price_per_tonne"`
	IssueDate     time.Time         `json:"issue_date"`
	ExpiryDate    time.Time         `json:"expiry_date"`
	Status        CertificateStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

func NewCertificate(certificateID id.CertificateID, tenantID id.TenantID, certificateNo string, quantity int, pricePerTonne decimal.Decimal, issueDate, expiryDate time.Time, now time.Time) (*Certificate, error) {
	certificateNo = strings.TrimSpace(certificateNo)
	if certificateNo == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "certificate number is required")
	}
	if quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "certificate quantity must be positive")
	}
	if pricePerTonne.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "price per tonne cannot be negative")
	}
	if !expiryDate.IsZero() && expiryDate.Before(issueDate) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "certificate expires before it is issued")
	}
	return &Certificate{
		ID:            certificateID,
		TenantID:      tenantID,
		CertificateNo: certificateNo,
		Quantity:      quantity,
		PricePerTonne: pricePerTonne,
		IssueDate:     issueDate,
		ExpiryDate:    expiryDate,
		Status:        CertificateActive,
		CreatedAt:     now,
	}, nil
}

// Remaining is the certificate quantity minus what has already been
// surrendered against it.
func (c *Certificate) Remaining(surrendered int) int {
	remaining := c.Quantity - surrendered
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CanSurrender checks that quantity more certificates can be surrendered
// given what is already surrendered.
func (c *Certificate) CanSurrender(quantity, alreadySurrendered int) error {
	if quantity <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "surrender quantity must be positive")
	}
	if remaining := c.Remaining(alreadySurrendered); quantity > remaining {
		return dErrors.New(dErrors.CodeInvariantViolation, "surrender quantity exceeds remaining certificate quantity")
	}
	return nil
}

// CertificateSurrender records surrendering part of a certificate against a
// declaration. It is tenant-scoped through its declaration.
type CertificateSurrender struct {
	ID            id.SurrenderID   `json:"id"`
	DeclarationID id.DeclarationID `json:"declaration_id"`
	CertificateID id.CertificateID `json:"certificate_id"`
	Quantity      int              `json:"quantity"`
	SurrenderDate time.Time        `json:"surrender_date"`
}
