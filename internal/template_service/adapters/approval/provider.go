package approval

import (
	"context"

	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// SubmitRequest is what a channel template looks like to the external
// review workflow.
type SubmitRequest struct {
	Name     string
	Language string
	Category string
	BodyText string
}

// RemoteTemplate is the provider's view of one of its templates, used by sync.
type RemoteTemplate struct {
	ExternalID string
	Name       string
	Language   string
	Category   string
	Status     domain.ApprovalStatus
	BodyText   string
}

// Provider is the external channel-approval collaborator. Implementations
// must bound their network calls and surface transient failures as
// domain.ErrProviderUnavailable so callers can decide to retry.
type Provider interface {
	// Submit registers the template for review and returns the
	// provider-assigned external id.
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	// Status returns the current review state of a submitted template.
	Status(ctx context.Context, externalID string) (domain.ApprovalStatus, error)
	// ListTemplates returns the provider's current template set for the
	// authenticated account, used by SyncTemplates reconciliation.
	ListTemplates(ctx context.Context) ([]RemoteTemplate, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}
