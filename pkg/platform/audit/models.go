package audit

import (
	"context"
	"time"

	id "skdm/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing per category.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: tenant
	// lifecycle, declaration status transitions, artifact generation.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Cross-tenant access attempts land here; these feed alerting.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and visibility.
	CategoryOperations EventCategory = "operations"
)

// Action names for audit events.
const (
	ActionTenantCreated            = "tenant_created"
	ActionTenantDeactivated        = "tenant_deactivated"
	ActionTenantIsolationViolation = "tenant_isolation_violation"
	ActionRoleDenied               = "role_denied"
	ActionLoginFailed              = "login_failed"
	ActionDeclarationCreated       = "declaration_created"
	ActionDeclarationStatusChanged = "declaration_status_changed"
	ActionCertificateSurrendered   = "certificate_surrendered"
	ActionArtifactGenerated        = "artifact_generated"
)

// Event is emitted from domain logic to capture key actions. Kept
// transport-agnostic so stores and sinks can fan out.
//
// Isolation violations must never carry row contents: only identifiers of
// the scope and the targeted entity are recorded.
type Event struct {
	Category  EventCategory `json:"category"`
	Action    string        `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	TenantID  id.TenantID   `json:"tenant_id"`
	UserID    id.UserID     `json:"user_id,omitempty"`
	Subject   string        `json:"subject,omitempty"` // targeted entity, e.g. "declaration:<uuid>"
	Reason    string        `json:"reason,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	ClientIP  string        `json:"client_ip,omitempty"`
}

// Store persists audit events. Implementations must be safe for concurrent
// use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher is the emission side used by services. The zero publisher
// (nil) is valid and drops events, so wiring stays optional in tests.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
