// Package compiler turns one declaration into a canonical, hashed XML
// artifact. A run moves through fixed phases — collect a consistent
// snapshot, validate, render, hash — and either ends Done with an artifact
// or Failed with the fatal validation errors. Compilation never mutates the
// declaration.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	compilermetrics "skdm/internal/compiler/metrics"
	"skdm/internal/gateway"
	id "skdm/pkg/domain"
	dErrors "skdm/pkg/domain-errors"
	"skdm/pkg/platform/audit"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/requestcontext"
)

// Phase names a stage of a compilation run.
type Phase string

const (
	PhaseCollecting Phase = "COLLECTING"
	PhaseValidating Phase = "VALIDATING"
	PhaseRendering  Phase = "RENDERING"
	PhaseHashing    Phase = "HASHING"
	PhaseDone       Phase = "DONE"
	PhaseFailed     Phase = "FAILED"
)

// Result is the outcome of a compilation run. GeneratedAt lives only here,
// never inside the artifact bytes, so recompiling unchanged data yields
// identical bytes and an identical hash.
type Result struct {
	Success          bool      `json:"success"`
	Phase            Phase     `json:"phase"`
	Artifact         []byte    `json:"artifact,omitempty"`
	SHA256Hash       string    `json:"sha256_hash,omitempty"`
	ValidationErrors []string  `json:"validation_errors,omitempty"`
	Warnings         []string  `json:"warnings,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

type Compiler struct {
	snapshots SnapshotLoader
	logger    *slog.Logger
	metrics   *compilermetrics.Metrics
	auditor   audit.Publisher
	tracer    trace.Tracer
}

type Option func(*Compiler)

func WithMetrics(m *compilermetrics.Metrics) Option {
	return func(c *Compiler) { c.metrics = m }
}

func WithAuditor(a audit.Publisher) Option {
	return func(c *Compiler) { c.auditor = a }
}

func New(snapshots SnapshotLoader, logger *slog.Logger, opts ...Option) *Compiler {
	c := &Compiler{
		snapshots: snapshots,
		logger:    logger,
		tracer:    otel.Tracer("skdm/compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile runs the full pipeline for one declaration. A *Result comes back
// for both Done and Failed runs; an error return means the run itself could
// not proceed (unauthorized scope, missing declaration, storage failure).
func (c *Compiler) Compile(ctx context.Context, scope gateway.Scope, declarationID id.DeclarationID) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.Compile",
		trace.WithAttributes(
			attribute.String("declaration.id", declarationID.String()),
			attribute.String("tenant.id", scope.TenantID.String()),
		))
	defer span.End()

	started := requestcontext.Now(ctx)
	defer func() {
		if c.metrics != nil {
			c.metrics.CompileDuration.Observe(time.Since(started).Seconds())
		}
	}()

	phase := PhaseCollecting
	span.AddEvent(string(phase))
	snapshot, err := c.snapshots.Load(ctx, scope, declarationID)
	if err != nil {
		c.countRun("error")
		return nil, c.wrapLoadErr(ctx, scope, err, declarationID)
	}

	phase = PhaseValidating
	span.AddEvent(string(phase))
	fatal, warnings := validate(snapshot)
	if len(fatal) > 0 {
		c.countRun("failed")
		c.logger.WarnContext(ctx, "compilation failed validation",
			slog.String("declaration_id", declarationID.String()),
			slog.Int("errors", len(fatal)),
			slog.String("request_id", requestcontext.RequestID(ctx)),
		)
		return &Result{
			Phase:            PhaseFailed,
			ValidationErrors: fatal,
			Warnings:         warnings,
			GeneratedAt:      started,
		}, nil
	}

	phase = PhaseRendering
	span.AddEvent(string(phase))
	artifact, err := render(snapshot)
	if err != nil {
		c.countRun("error")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "artifact rendering failed")
	}

	phase = PhaseHashing
	span.AddEvent(string(phase))
	digest := sha256.Sum256(artifact)
	hash := hex.EncodeToString(digest[:])

	c.countRun("done")
	if c.metrics != nil {
		c.metrics.ArtifactBytes.Observe(float64(len(artifact)))
	}
	if c.auditor != nil {
		_ = c.auditor.Emit(ctx, audit.Event{
			Category:  audit.CategoryCompliance,
			Action:    audit.ActionArtifactGenerated,
			TenantID:  scope.TenantID,
			UserID:    requestcontext.UserID(ctx),
			Subject:   "declaration:" + declarationID.String(),
			Reason:    hash,
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	c.logger.InfoContext(ctx, "declaration compiled",
		slog.String("declaration_id", declarationID.String()),
		slog.String("sha256", hash),
		slog.Int("bytes", len(artifact)),
		slog.String("request_id", requestcontext.RequestID(ctx)),
	)

	return &Result{
		Success:     true,
		Phase:       PhaseDone,
		Artifact:    artifact,
		SHA256Hash:  hash,
		Warnings:    warnings,
		GeneratedAt: started,
	}, nil
}

func (c *Compiler) countRun(outcome string) {
	if c.metrics != nil {
		c.metrics.Compilations.WithLabelValues(outcome).Inc()
	}
}

func (c *Compiler) wrapLoadErr(ctx context.Context, scope gateway.Scope, err error, declarationID id.DeclarationID) error {
	switch {
	case errors.Is(err, sentinel.ErrTenantMismatch):
		if c.auditor != nil {
			_ = c.auditor.Emit(ctx, audit.Event{
				Category:  audit.CategorySecurity,
				Action:    audit.ActionTenantIsolationViolation,
				TenantID:  scope.TenantID,
				UserID:    requestcontext.UserID(ctx),
				Subject:   "declaration:" + declarationID.String(),
				RequestID: requestcontext.RequestID(ctx),
				ClientIP:  requestcontext.ClientIP(ctx),
			})
		}
		return dErrors.New(dErrors.CodeUnauthorized, "access denied")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "declaration not found")
	default:
		// Transient storage trouble is retryable by the caller; the run
		// itself never retries.
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "snapshot collection failed")
	}
}
