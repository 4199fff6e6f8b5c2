package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skdm/internal/compiler/artifact"
	"skdm/internal/declaration/models"
	"skdm/internal/declaration/store"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
)

func declarantScope(tenantID id.TenantID) gateway.Scope {
	return gateway.Scope{TenantID: tenantID, Role: id.RoleCBAMDeclarant}
}

func newService(t *testing.T) (*Service, *audit.MemoryStore) {
	t.Helper()
	sink := audit.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	return New(store.NewMemoryStore(), logger, WithAuditor(audit.NewStoreEmitter(sink, logger))), sink
}

func TestCreateDeclaration(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, declaration.Status)
	assert.Len(t, sink.ByAction(audit.ActionDeclarationCreated), 1)

	// Second declaration for the same year conflicts.
	_, err = svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	// Year outside the CBAM range is invalid.
	_, err = svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2040})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	// DRAFT -> APPROVED is undefined.
	_, err = svc.Transition(ctx, scope, declaration.ID, models.StatusApproved)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	// The happy path with an amendment loop.
	for _, target := range []models.Status{
		models.StatusSubmitted, models.StatusUnderReview, models.StatusAmended,
		models.StatusSubmitted, models.StatusUnderReview, models.StatusApproved,
	} {
		declaration, err = svc.Transition(ctx, scope, declaration.ID, target)
		require.NoError(t, err, "transition to %s", target)
		assert.Equal(t, target, declaration.Status)
	}
	require.NotNil(t, declaration.SubmissionDate)

	// APPROVED is terminal.
	_, err = svc.Transition(ctx, scope, declaration.ID, models.StatusSubmitted)
	require.Error(t, err)
}

func TestSurrenderAgainstRemainingQuantity(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)
	certificate, err := svc.CreateCertificate(ctx, scope, CreateCertificateInput{
		CertificateNo: "CERT-001",
		Quantity:      5,
		PricePerTonne: decimal.RequireFromString("85.50"),
		IssueDate:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.Surrender(ctx, scope, declaration.ID, SurrenderInput{CertificateID: certificate.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Len(t, sink.ByAction(audit.ActionCertificateSurrendered), 1)

	views, err := svc.ListCertificates(ctx, scope)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].Remaining)
	assert.Equal(t, models.CertificateActive, views[0].Status)

	// Surrendering more than the remaining 2 must fail.
	_, err = svc.Surrender(ctx, scope, declaration.ID, SurrenderInput{CertificateID: certificate.ID, Quantity: 3})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	// Exactly the remaining 2 exhausts the certificate.
	_, err = svc.Surrender(ctx, scope, declaration.ID, SurrenderInput{CertificateID: certificate.ID, Quantity: 2})
	require.NoError(t, err)
	views, err = svc.ListCertificates(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 0, views[0].Remaining)
	assert.Equal(t, models.CertificateSurrendered, views[0].Status)
}

func TestCrossTenantDeclarationAccess(t *testing.T) {
	svc, sink := newService(t)
	ctx := context.Background()

	owner := declarantScope(id.NewTenantID())
	declaration, err := svc.CreateDeclaration(ctx, owner, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	intruder := declarantScope(id.NewTenantID())

	_, err = svc.GetDetail(ctx, intruder, declaration.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = svc.Transition(ctx, intruder, declaration.ID, models.StatusSubmitted)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// Both attempts were audited; the declaration is untouched.
	assert.Len(t, sink.ByAction(audit.ActionTenantIsolationViolation), 2)
	loaded, err := svc.GetDeclaration(ctx, owner, declaration.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, loaded.Status)
}

func TestVerificationUpsert(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	verifier := gateway.Scope{TenantID: scope.TenantID, Role: id.RoleVerifier}
	_, err = svc.UpsertVerification(ctx, verifier, declaration.ID, VerificationInput{
		VerifierName:    "TUV Rheinland",
		AccreditationNo: "DE-V-0051",
		Opinion:         "SATISFACTORY",
		IssueDate:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Replacing the statement keeps one per declaration.
	_, err = svc.UpsertVerification(ctx, verifier, declaration.ID, VerificationInput{
		VerifierName: "TUV Rheinland",
		Opinion:      "SATISFACTORY_WITH_REMARKS",
		IssueDate:    time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	detail, err := svc.GetDetail(ctx, scope, declaration.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Verification)
	assert.Equal(t, models.OpinionSatisfactoryWithRemarks, detail.Verification.Opinion)

	// Suppliers cannot write verification statements.
	supplier := gateway.Scope{TenantID: scope.TenantID, Role: id.RoleSupplier}
	_, err = svc.UpsertVerification(ctx, supplier, declaration.ID, VerificationInput{
		VerifierName: "Anyone", Opinion: "SATISFACTORY",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestAdjustments(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	_, err = svc.AddAdjustment(ctx, scope, declaration.ID, AdjustmentInput{
		Type:          "DEDUCTION",
		Amount:        decimal.RequireFromString("120.5"),
		Description:   "Free allocation under EU ETS",
		EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	_, err = svc.AddAdjustment(ctx, scope, declaration.ID, AdjustmentInput{
		Type:          "SIDEWAYS",
		Amount:        decimal.NewFromInt(1),
		EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestMutationsEvictCachedArtifact(t *testing.T) {
	cache := artifact.NewMemoryStore()
	logger := slog.New(slog.DiscardHandler)
	svc := New(store.NewMemoryStore(), logger, WithArtifactCache(cache))
	ctx := context.Background()
	scope := declarantScope(id.NewTenantID())

	declaration, err := svc.CreateDeclaration(ctx, scope, CreateDeclarationInput{Year: 2025})
	require.NoError(t, err)

	seed := func() {
		require.NoError(t, cache.Put(ctx, scope.TenantID, declaration.ID, artifact.Stored{
			Artifact:   []byte("<CBAMDeclaration/>"),
			SHA256Hash: "abc",
		}))
	}
	assertEvicted := func() {
		t.Helper()
		_, err := cache.Get(ctx, scope.TenantID, declaration.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	}

	seed()
	_, err = svc.Transition(ctx, scope, declaration.ID, models.StatusSubmitted)
	require.NoError(t, err)
	assertEvicted()

	seed()
	_, err = svc.AddAdjustment(ctx, scope, declaration.ID, AdjustmentInput{
		Type:          "DEDUCTION",
		Amount:        decimal.NewFromInt(10),
		Description:   "Free allocation under EU ETS",
		EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assertEvicted()

	seed()
	_, err = svc.UpsertVerification(ctx, scope, declaration.ID, VerificationInput{
		VerifierName:    "TUV Nord",
		AccreditationNo: "DE-V-0042",
		Opinion:         "SATISFACTORY",
		Period:          "2025",
		IssueDate:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assertEvicted()

	// A failed mutation leaves the cache alone.
	other := id.NewTenantID()
	require.NoError(t, cache.Put(ctx, other, declaration.ID, artifact.Stored{Artifact: []byte("x")}))
	_, err = svc.Surrender(ctx, scope, declaration.ID, SurrenderInput{})
	require.Error(t, err)
	_, err = cache.Get(ctx, other, declaration.ID)
	require.NoError(t, err)
}
