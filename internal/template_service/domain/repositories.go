package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TemplateFilter narrows and pages List results. Zero values mean "no filter".
type TemplateFilter struct {
	Type            *TemplateType
	Category        string
	// Search matches name or description, case-insensitively.
	Search          string
	// Tags requires every listed tag to be present on the template.
	Tags            []string
	IsActive        *bool
	RequireApproval *bool
	ExternalStatus  *ApprovalStatus
	CreatedBy       *uuid.UUID
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time

	// SortBy is one of: name, category, created_at, updated_at, usage_count.
	SortBy   string
	SortDesc bool

	Limit  int
	Offset int
}

// TemplateRepository is the persistence contract for message templates.
// Every method is tenant-scoped; a tenant mismatch surfaces as ErrNotFound.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *MessageTemplate) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*MessageTemplate, error)
	// GetByExternalID looks a channel template up by its provider-assigned id.
	GetByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*MessageTemplate, error)
	// List returns one page of templates plus the total match count so
	// callers can compute pages independent of the returned slice size.
	List(ctx context.Context, tenantID uuid.UUID, filter TemplateFilter) ([]*MessageTemplate, int64, error)
	Update(ctx context.Context, tpl *MessageTemplate) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// IncrementUsage atomically bumps usage_count by one and stamps
	// last_used_at. Must be a single storage-level add, never read-modify-write,
	// so concurrent renders cannot lose updates.
	IncrementUsage(ctx context.Context, tenantID, id uuid.UUID, usedAt time.Time) error
}
