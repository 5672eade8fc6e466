package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zapdesk/golang_services/internal/template_service/adapters/approval"
	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// ErrApprovalNotSupported is returned when an approval operation targets a
// template type that has no external review workflow.
var ErrApprovalNotSupported = errors.New("approval workflow only applies to channel templates")

// ErrNoApprovalProvider is returned when no provider is configured.
var ErrNoApprovalProvider = errors.New("no approval provider configured")

// SyncReport summarizes one SyncTemplates reconciliation pass.
type SyncReport struct {
	Imported  int `json:"imported"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// SubmitForApproval moves a draft channel template into the external review
// workflow and records the provider-assigned external id.
func (a *Application) SubmitForApproval(ctx context.Context, tenantID, templateID uuid.UUID) (*domain.MessageTemplate, error) {
	if a.provider == nil {
		return nil, ErrNoApprovalProvider
	}
	tpl, err := a.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.Type != domain.TemplateTypeChannel || tpl.Content.Channel == nil {
		return nil, ErrApprovalNotSupported
	}
	if !tpl.ExternalStatus.CanTransitionTo(domain.ApprovalStatusSubmitted) {
		return nil, &domain.InvalidTransitionError{From: tpl.ExternalStatus, To: domain.ApprovalStatusSubmitted}
	}

	timer := prometheus.NewTimer(approvalProviderRequestDurationHist.WithLabelValues(a.provider.Name(), "submit"))
	externalID, err := a.provider.Submit(ctx, approval.SubmitRequest{
		Name:     tpl.Name,
		Language: tpl.Content.Channel.Language,
		Category: tpl.Category,
		BodyText: tpl.Content.Channel.Body.Text,
	})
	timer.ObserveDuration()
	if err != nil {
		a.logger.ErrorContext(ctx, "Approval submit failed", "error", err, "template_id", templateID, "tenant_id", tenantID)
		return nil, err
	}

	tpl.ExternalTemplateID = externalID
	tpl.ExternalName = tpl.Name
	tpl.ExternalStatus = domain.ApprovalStatusSubmitted
	tpl.UpdatedAt = time.Now().UTC()

	if err := a.repo.Update(ctx, tpl); err != nil {
		return nil, fmt.Errorf("template submitted (external id %s) but local update failed: %w", externalID, err)
	}

	a.logger.InfoContext(ctx, "Template submitted for approval",
		"template_id", templateID, "tenant_id", tenantID, "external_id", externalID)
	return tpl, nil
}

// CheckApprovalStatus polls the provider for the current review state and
// persists a state change when the transition is legal.
func (a *Application) CheckApprovalStatus(ctx context.Context, tenantID, templateID uuid.UUID) (domain.ApprovalStatus, error) {
	if a.provider == nil {
		return "", ErrNoApprovalProvider
	}
	tpl, err := a.repo.GetByID(ctx, tenantID, templateID)
	if err != nil {
		return "", err
	}
	if tpl.Type != domain.TemplateTypeChannel {
		return "", ErrApprovalNotSupported
	}
	if tpl.ExternalTemplateID == "" {
		return tpl.ExternalStatus, nil
	}

	timer := prometheus.NewTimer(approvalProviderRequestDurationHist.WithLabelValues(a.provider.Name(), "status"))
	remoteStatus, err := a.provider.Status(ctx, tpl.ExternalTemplateID)
	timer.ObserveDuration()
	if err != nil {
		return "", err
	}

	if remoteStatus != tpl.ExternalStatus && tpl.ExternalStatus.CanTransitionTo(remoteStatus) {
		tpl.ExternalStatus = remoteStatus
		tpl.UpdatedAt = time.Now().UTC()
		if err := a.repo.Update(ctx, tpl); err != nil {
			a.logger.ErrorContext(ctx, "Failed to persist approval status change",
				"error", err, "template_id", templateID, "status", remoteStatus)
			return "", err
		}
		a.logger.InfoContext(ctx, "Approval status updated",
			"template_id", templateID, "tenant_id", tenantID, "status", remoteStatus)
	}

	return tpl.ExternalStatus, nil
}

// SyncTemplates reconciles local channel templates against the provider's
// current set. The provider wins for approval and external identity fields;
// local copies win for descriptive fields (name, description, category,
// tags). Remote templates with no local counterpart are imported.
func (a *Application) SyncTemplates(ctx context.Context, tenantID uuid.UUID) (*SyncReport, error) {
	if a.provider == nil {
		return nil, ErrNoApprovalProvider
	}

	timer := prometheus.NewTimer(approvalProviderRequestDurationHist.WithLabelValues(a.provider.Name(), "list"))
	remotes, err := a.provider.ListTemplates(ctx)
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, remote := range remotes {
		local, err := a.repo.GetByExternalID(ctx, tenantID, remote.ExternalID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if importErr := a.importRemoteTemplate(ctx, tenantID, remote); importErr != nil {
				a.logger.ErrorContext(ctx, "Failed to import remote template",
					"error", importErr, "external_id", remote.ExternalID, "tenant_id", tenantID)
				continue
			}
			syncedTemplatesCounter.WithLabelValues("imported").Inc()
			report.Imported++
		case err != nil:
			return nil, err
		default:
			changed := false
			if local.ExternalStatus != remote.Status {
				local.ExternalStatus = remote.Status
				changed = true
			}
			if local.ExternalName != remote.Name {
				local.ExternalName = remote.Name
				changed = true
			}
			if !changed {
				syncedTemplatesCounter.WithLabelValues("unchanged").Inc()
				report.Unchanged++
				continue
			}
			local.UpdatedAt = time.Now().UTC()
			if err := a.repo.Update(ctx, local); err != nil {
				a.logger.ErrorContext(ctx, "Failed to persist synced template",
					"error", err, "template_id", local.ID, "tenant_id", tenantID)
				continue
			}
			syncedTemplatesCounter.WithLabelValues("updated").Inc()
			report.Updated++
		}
	}

	a.logger.InfoContext(ctx, "Template sync completed", "tenant_id", tenantID,
		"imported", report.Imported, "updated", report.Updated, "unchanged", report.Unchanged)
	return report, nil
}

func (a *Application) importRemoteTemplate(ctx context.Context, tenantID uuid.UUID, remote approval.RemoteTemplate) error {
	tpl := domain.NewMessageTemplate(uuid.New(), tenantID, remote.Name, domain.TemplateTypeChannel, domain.TemplateContent{
		Channel: &domain.ChannelContent{
			Language: remote.Language,
			Body:     domain.ChannelBody{Text: remote.BodyText},
		},
	}, uuid.Nil)
	tpl.Category = remote.Category
	tpl.ExternalTemplateID = remote.ExternalID
	tpl.ExternalName = remote.Name
	tpl.LanguageCode = remote.Language
	tpl.RequireApproval = true
	tpl.ExternalStatus = remote.Status
	tpl.Variables = domain.ExtractVariables(tpl.Content)

	return a.repo.Create(ctx, tpl)
}
