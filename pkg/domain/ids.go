package domain

import (
	"github.com/google/uuid"

	dErrors "skdm/pkg/domain-errors"
)

// Typed UUID identifiers. Distinct types prevent accidental cross-assignment
// between entities at compile time (a TenantID can never be passed where a
// DeclarationID is expected).
type (
	TenantID           uuid.UUID
	UserID             uuid.UUID
	CompanyID          uuid.UUID
	InstallationID     uuid.UUID
	InstallationDataID uuid.UUID
	DeclarationID      uuid.UUID
	CertificateID      uuid.UUID
	SurrenderID        uuid.UUID
	AdjustmentID       uuid.UUID
)

// parseUUID enforces the parsing invariant shared by all ID types:
// IDs must be valid, non-empty, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" must not be the nil UUID")
	}
	return u, nil
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant id")
	return TenantID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseCompanyID(s string) (CompanyID, error) {
	u, err := parseUUID(s, "company id")
	return CompanyID(u), err
}

func ParseInstallationID(s string) (InstallationID, error) {
	u, err := parseUUID(s, "installation id")
	return InstallationID(u), err
}

func ParseInstallationDataID(s string) (InstallationDataID, error) {
	u, err := parseUUID(s, "installation data id")
	return InstallationDataID(u), err
}

func ParseDeclarationID(s string) (DeclarationID, error) {
	u, err := parseUUID(s, "declaration id")
	return DeclarationID(u), err
}

func ParseCertificateID(s string) (CertificateID, error) {
	u, err := parseUUID(s, "certificate id")
	return CertificateID(u), err
}

func ParseSurrenderID(s string) (SurrenderID, error) {
	u, err := parseUUID(s, "surrender id")
	return SurrenderID(u), err
}

func ParseAdjustmentID(s string) (AdjustmentID, error) {
	u, err := parseUUID(s, "adjustment id")
	return AdjustmentID(u), err
}

func (id TenantID) String() string           { return uuid.UUID(id).String() }
func (id UserID) String() string             { return uuid.UUID(id).String() }
func (id CompanyID) String() string          { return uuid.UUID(id).String() }
func (id InstallationID) String() string     { return uuid.UUID(id).String() }
func (id InstallationDataID) String() string { return uuid.UUID(id).String() }
func (id DeclarationID) String() string      { return uuid.UUID(id).String() }
func (id CertificateID) String() string      { return uuid.UUID(id).String() }
func (id SurrenderID) String() string        { return uuid.UUID(id).String() }
func (id AdjustmentID) String() string       { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DeclarationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewTenantID and friends mint fresh identifiers. Kept as functions so call
// sites read as intent rather than a uuid.New() conversion chain.
func NewTenantID() TenantID                     { return TenantID(uuid.New()) }
func NewUserID() UserID                         { return UserID(uuid.New()) }
func NewCompanyID() CompanyID                   { return CompanyID(uuid.New()) }
func NewInstallationID() InstallationID         { return InstallationID(uuid.New()) }
func NewInstallationDataID() InstallationDataID { return InstallationDataID(uuid.New()) }
func NewDeclarationID() DeclarationID           { return DeclarationID(uuid.New()) }
func NewCertificateID() CertificateID           { return CertificateID(uuid.New()) }
func NewSurrenderID() SurrenderID               { return SurrenderID(uuid.New()) }
func NewAdjustmentID() AdjustmentID             { return AdjustmentID(uuid.New()) }
