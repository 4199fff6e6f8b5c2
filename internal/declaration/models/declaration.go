// Package models holds the annual declaration aggregate and its children:
// certificates, surrenders, free-allocation adjustments, and verification.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
)

// Status is the declaration lifecycle state. Transitions are explicit; the
// compiler never changes status as a side effect.
type Status string

const (
	StatusDraft       Status = "DRAFT"
	StatusSubmitted   Status = "SUBMITTED"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusAmended     Status = "AMENDED"
)

var statusTransitions = map[Status][]Status{
	StatusDraft:       {StatusSubmitted},
	StatusSubmitted:   {StatusUnderReview},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusAmended},
	StatusAmended:     {StatusSubmitted},
	StatusApproved:    {},
	StatusRejected:    {},
}

func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := statusTransitions[status]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown declaration status: "+s)
	}
	return status, nil
}

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether the FSM allows moving to target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Declaration is one tenant's annual CBAM declaration.
type Declaration struct {
	ID                id.DeclarationID `json:"id"`
	TenantID          id.TenantID      `json:"tenant_id"`
	Year              int              `json:"year"`
	Status            Status           `json:"status"`
	TotalEmissions    *decimal.Decimal `json:"total_emissions,omitempty"`
	TotalCertificates *int             `json:"total_certificates,omitempty"`
	SubmissionDate    *time.Time       `json:"submission_date,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func NewDeclaration(declarationID id.DeclarationID, tenantID id.TenantID, year int, notes string, now time.Time) (*Declaration, error) {
	if year < 2023 || year > 2035 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reporting year is outside the CBAM range 2023-2035")
	}
	return &Declaration{
		ID:        declarationID,
		TenantID:  tenantID,
		Year:      year,
		Status:    StatusDraft,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition validates the target status without mutating.
func (d *Declaration) CanTransition(target Status) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown declaration status: "+target.String())
	}
	if !d.Status.CanTransitionTo(target) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"declaration cannot move from "+d.Status.String()+" to "+target.String())
	}
	return nil
}

// ApplyTransition moves the declaration to target. Submission stamps the
// submission date; re-submission after amendment re-stamps it.
func (d *Declaration) ApplyTransition(target Status, now time.Time) {
	d.Status = target
	d.UpdatedAt = now
	if target == StatusSubmitted {
		submittedAt := now
		d.SubmissionDate = &submittedAt
	}
}
