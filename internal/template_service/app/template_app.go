package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zapdesk/golang_services/internal/platform/messagebroker"
	"github.com/zapdesk/golang_services/internal/template_service/adapters/approval"
	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// NATS subjects for template lifecycle events. Publishing is best-effort:
// a broker failure never fails the originating operation.
const (
	NATSTemplateCreatedV1  = "template.created.v1"
	NATSTemplateUpdatedV1  = "template.updated.v1"
	NATSTemplateDeletedV1  = "template.deleted.v1"
	NATSTemplateRenderedV1 = "template.rendered.v1"
)

// Application is the template engine orchestrator: it composes the
// repository, the pure validation/render functions, usage tracking and the
// approval bridge behind one tenant-scoped API.
type Application struct {
	repo            domain.TemplateRepository
	provider        approval.Provider
	natsClient      *messagebroker.NATSClient // optional
	logger          *slog.Logger
	maxMessageBytes int
}

// NewApplication creates an Application. natsClient may be nil; provider may
// be nil when no approval workflow is configured.
func NewApplication(
	repo domain.TemplateRepository,
	provider approval.Provider,
	natsClient *messagebroker.NATSClient,
	logger *slog.Logger,
	maxMessageBytes int,
) *Application {
	if maxMessageBytes <= 0 {
		maxMessageBytes = domain.DefaultMaxMessageBytes
	}
	return &Application{
		repo:            repo,
		provider:        provider,
		natsClient:      natsClient,
		logger:          logger,
		maxMessageBytes: maxMessageBytes,
	}
}

// CreateTemplateRequest carries everything needed to author a template.
// Type is fixed at creation and cannot be changed by updates.
type CreateTemplateRequest struct {
	Name            string
	Description     string
	Category        string
	Tags            []string
	PreviewText     string
	Type            domain.TemplateType
	Content         domain.TemplateContent
	LanguageCode    string
	RequireApproval bool
	CreatedBy       uuid.UUID
}

// UpdateTemplateRequest applies a partial update: only non-nil fields are
// touched. Supplying Content re-runs variable extraction.
type UpdateTemplateRequest struct {
	Name            *string
	Description     *string
	Category        *string
	Tags            *[]string
	PreviewText     *string
	Content         *domain.TemplateContent
	LanguageCode    *string
	RequireApproval *bool
	IsActive        *bool
}

// CreateTemplate validates the request, extracts the variable cache and
// persists the template. On validation failure every accumulated error is
// returned and nothing is persisted.
func (a *Application) CreateTemplate(ctx context.Context, tenantID uuid.UUID, req CreateTemplateRequest) (*domain.MessageTemplate, error) {
	tpl := domain.NewMessageTemplate(uuid.New(), tenantID, req.Name, req.Type, req.Content, req.CreatedBy)
	tpl.Description = req.Description
	tpl.Category = req.Category
	tpl.Tags = req.Tags
	tpl.PreviewText = req.PreviewText
	tpl.LanguageCode = req.LanguageCode
	tpl.RequireApproval = req.RequireApproval

	result := domain.ValidateTemplate(tpl)
	if !result.IsValid {
		validationFailuresCounter.Inc()
		a.logger.WarnContext(ctx, "Template rejected by validation",
			"tenant_id", tenantID, "name", req.Name, "error_count", len(result.Errors))
		return nil, &domain.ValidationFailedError{Result: result}
	}

	tpl.Variables = domain.ExtractVariables(tpl.Content)

	if err := a.repo.Create(ctx, tpl); err != nil {
		a.logger.ErrorContext(ctx, "Failed to create template", "error", err, "tenant_id", tenantID, "name", req.Name)
		return nil, err
	}

	templatesCreatedCounter.WithLabelValues(string(tpl.Type)).Inc()
	a.publishEvent(ctx, NATSTemplateCreatedV1, tpl.TenantID, tpl.ID)
	a.logger.InfoContext(ctx, "Template created", "template_id", tpl.ID, "tenant_id", tenantID, "type", tpl.Type)
	return tpl, nil
}

// UpdateTemplate loads the template tenant-scoped, applies only the fields
// present in the request and persists. Last-write-wins: no concurrency token
// is tracked.
func (a *Application) UpdateTemplate(ctx context.Context, tenantID, templateID uuid.UUID, req UpdateTemplateRequest) (*domain.MessageTemplate, error) {
	tpl, err := a.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.Description != nil {
		tpl.Description = *req.Description
	}
	if req.Category != nil {
		tpl.Category = *req.Category
	}
	if req.Tags != nil {
		tpl.Tags = *req.Tags
	}
	if req.PreviewText != nil {
		tpl.PreviewText = *req.PreviewText
	}
	if req.LanguageCode != nil {
		tpl.LanguageCode = *req.LanguageCode
	}
	if req.RequireApproval != nil {
		tpl.RequireApproval = *req.RequireApproval
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}
	if req.Content != nil {
		tpl.Content = *req.Content
		tpl.Variables = domain.ExtractVariables(tpl.Content)
	}

	result := domain.ValidateTemplate(tpl)
	if !result.IsValid {
		validationFailuresCounter.Inc()
		return nil, &domain.ValidationFailedError{Result: result}
	}

	tpl.UpdatedAt = time.Now().UTC()
	if err := a.repo.Update(ctx, tpl); err != nil {
		a.logger.ErrorContext(ctx, "Failed to update template", "error", err, "template_id", templateID, "tenant_id", tenantID)
		return nil, err
	}

	a.publishEvent(ctx, NATSTemplateUpdatedV1, tenantID, templateID)
	return tpl, nil
}

// DeleteTemplate hard-deletes the template, tenant-scoped.
func (a *Application) DeleteTemplate(ctx context.Context, tenantID, templateID uuid.UUID) error {
	if err := a.repo.Delete(ctx, tenantID, templateID); err != nil {
		return err
	}
	a.publishEvent(ctx, NATSTemplateDeletedV1, tenantID, templateID)
	a.logger.InfoContext(ctx, "Template deleted", "template_id", templateID, "tenant_id", tenantID)
	return nil
}

// GetTemplate fetches one template, tenant-scoped.
func (a *Application) GetTemplate(ctx context.Context, tenantID, templateID uuid.UUID) (*domain.MessageTemplate, error) {
	return a.repo.GetByID(ctx, tenantID, templateID)
}

// ListTemplates returns a filtered page plus the total match count.
func (a *Application) ListTemplates(ctx context.Context, tenantID uuid.UUID, filter domain.TemplateFilter) ([]*domain.MessageTemplate, int64, error) {
	return a.repo.List(ctx, tenantID, filter)
}

// ValidateTemplate is a pure dry-validate, usable from the UI without persisting.
func (a *Application) ValidateTemplate(tpl *domain.MessageTemplate) domain.ValidationResult {
	return domain.ValidateTemplate(tpl)
}

// RenderTemplate loads the template, re-extracts the authoritative variable
// set, renders, then records usage best-effort. A usage-tracking failure is
// logged and counted but never fails the render.
func (a *Application) RenderTemplate(ctx context.Context, tenantID, templateID uuid.UUID, vars map[string]string) (*domain.RenderedTemplate, error) {
	tpl, err := a.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		rendersCounter.WithLabelValues("unknown", "not_found").Inc()
		return nil, err
	}

	timer := prometheus.NewTimer(renderDurationHist.WithLabelValues(string(tpl.Type)))
	defer timer.ObserveDuration()

	content, size, err := domain.RenderContent(tpl, vars)
	if err != nil {
		rendersCounter.WithLabelValues(string(tpl.Type), renderFailureLabel(err)).Inc()
		return nil, err
	}

	now := time.Now().UTC()
	if usageErr := a.repo.IncrementUsage(ctx, tenantID, templateID, now); usageErr != nil {
		usageRecordFailuresCounter.Inc()
		a.logger.WarnContext(ctx, "Failed to record template usage; render still returned",
			"error", usageErr, "template_id", templateID, "tenant_id", tenantID)
	}

	rendersCounter.WithLabelValues(string(tpl.Type), "success").Inc()
	a.publishEvent(ctx, NATSTemplateRenderedV1, tenantID, templateID)

	return &domain.RenderedTemplate{
		TemplateID:         templateID,
		Content:            content,
		VariablesUsed:      vars,
		RenderedAt:         now,
		EstimatedSizeBytes: size,
	}, nil
}

// PreviewTemplate renders the template with caller-supplied or synthesized
// sample data. Previews never record usage.
func (a *Application) PreviewTemplate(ctx context.Context, tenantID, templateID uuid.UUID, sampleVars map[string]string) (*domain.TemplatePreview, error) {
	tpl, err := a.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	return domain.BuildPreview(tpl, sampleVars, domain.PreviewOptions{MaxMessageBytes: a.maxMessageBytes})
}

func renderFailureLabel(err error) string {
	switch err.(type) {
	case *domain.MissingVariableError:
		return "missing_variable"
	default:
		return "render_error"
	}
}

type templateEvent struct {
	TenantID   string `json:"tenant_id"`
	TemplateID string `json:"template_id"`
	OccurredAt string `json:"occurred_at"`
}

// publishEvent emits a lifecycle event. Best-effort telemetry only.
func (a *Application) publishEvent(ctx context.Context, subject string, tenantID, templateID uuid.UUID) {
	if a.natsClient == nil {
		return
	}
	payload, err := json.Marshal(templateEvent{
		TenantID:   tenantID.String(),
		TemplateID: templateID.String(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to marshal template event", "error", err, "subject", subject)
		return
	}
	if err := a.natsClient.Publish(ctx, subject, payload); err != nil {
		a.logger.WarnContext(ctx, "Failed to publish template event", "error", err, "subject", subject)
	}
}
