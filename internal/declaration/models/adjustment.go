package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

// AdjustmentType is the direction of a free-allocation correction.
type AdjustmentType string

const (
	AdjustmentDeduction AdjustmentType = "DEDUCTION"
	AdjustmentAddition  AdjustmentType = "ADDITION"
)

func ParseAdjustmentType(s string) (AdjustmentType, error) {
	switch t := AdjustmentType(s); t {
	case AdjustmentDeduction, AdjustmentAddition:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown adjustment type: "+s)
	}
}

func (t AdjustmentType) String() string { return string(t) }

// FreeAllocationAdjustment corrects a declaration's liability for free
// allocation already granted under EU ETS.
type FreeAllocationAdjustment struct {
	ID            id.AdjustmentID  `json:"id"`
	DeclarationID id.DeclarationID `json:"declaration_id"`
	Type          AdjustmentType   `json:"type"`
	Amount        decimal.Decimal  `json:"amount"`
	Description   string           `json:"description,omitempty"`
	EffectiveDate time.Time        `json:"effective_date"`
}

func NewFreeAllocationAdjustment(adjustmentID id.AdjustmentID, declarationID id.DeclarationID, adjustmentType AdjustmentType, amount decimal.Decimal, description string, effectiveDate time.Time) (*FreeAllocationAdjustment, error) {
	if amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "adjustment amount cannot be negative")
	}
	if effectiveDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "effective date is required")
	}
	return &FreeAllocationAdjustment{
		ID:            adjustmentID,
		DeclarationID: declarationID,
		Type:          adjustmentType,
		Amount:        amount,
		Description:   strings.TrimSpace(description),
		EffectiveDate: effectiveDate,
	}, nil
}

// VerificationOpinion is the verifier's conclusion.
type VerificationOpinion string

const (
	OpinionSatisfactory            VerificationOpinion = "SATISFACTORY"
	OpinionSatisfactoryWithRemarks VerificationOpinion = "SATISFACTORY_WITH_REMARKS"
	OpinionNotSatisfactory         VerificationOpinion = "NOT_SATISFACTORY"
)

func ParseVerificationOpinion(s string) (VerificationOpinion, error) {
	switch o := VerificationOpinion(s); o {
	case OpinionSatisfactory, OpinionSatisfactoryWithRemarks, OpinionNotSatisfactory:
		return o, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown verification opinion: "+s)
	}
}

func (o VerificationOpinion) String() string { return string(o) }

// Verification is the accredited verifier's statement for a declaration.
// One per declaration; writing again replaces it.
type Verification struct {
	DeclarationID   id.DeclarationID    `json:"declaration_id"`
	VerifierName    string              `json:"verifier_name"`
	AccreditationNo string              `json:"accreditation_no"`
	Opinion         VerificationOpinion `json:"opinion"`
	Period          string              `json:"period,omitempty"`
	IssueDate       time.Time           `json:"issue_date"`
	Notes           string              `json:"notes,omitempty"`
}

func NewVerification(declarationID id.DeclarationID, verifierName, accreditationNo string, opinion VerificationOpinion, period string, issueDate time.Time, notes string) (*Verification, error) {
	verifierName = strings.TrimSpace(verifierName)
	if verifierName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verifier name is required")
	}
	return &Verification{
		DeclarationID:   declarationID,
		VerifierName:    verifierName,
		AccreditationNo: strings.TrimSpace(accreditationNo),
		Opinion:         opinion,
		Period:          strings.TrimSpace(period),
		IssueDate:       issueDate,
		Notes:           strings.TrimSpace(notes),
	}, nil
}
