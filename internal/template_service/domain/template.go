package domain

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType discriminates the content union of a MessageTemplate.
// It is fixed at creation; changing it would invalidate the content structure.
type TemplateType string

const (
	TemplateTypeText        TemplateType = "text"
	TemplateTypeMedia       TemplateType = "media"
	TemplateTypeInteractive TemplateType = "interactive"
	TemplateTypeChannel     TemplateType = "channel_template"
)

// IsValid reports whether t is one of the known template types.
func (t TemplateType) IsValid() bool {
	switch t {
	case TemplateTypeText, TemplateTypeMedia, TemplateTypeInteractive, TemplateTypeChannel:
		return true
	}
	return false
}

// InteractiveKind is the layout of an interactive message.
type InteractiveKind string

const (
	InteractiveKindButtons InteractiveKind = "buttons"
	InteractiveKindList    InteractiveKind = "list"
)

// TextContent is the content of a plain text template.
type TextContent struct {
	Text    string `json:"text"`
	Caption string `json:"caption,omitempty"`
}

// MediaContent references an externally hosted media asset with an
// optional templated caption. MediaType and MediaURL are never templated.
type MediaContent struct {
	MediaType string `json:"media_type"`
	MediaURL  string `json:"media_url"`
	Caption   string `json:"caption,omitempty"`
}

// InteractiveHeader is the optional header of an interactive message.
type InteractiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InteractiveBody carries the main text of an interactive message.
type InteractiveBody struct {
	Text string `json:"text"`
}

// InteractiveFooter is the optional footer of an interactive message.
type InteractiveFooter struct {
	Text string `json:"text"`
}

// InteractiveOption is a button or list row. Label and ID are structural
// and never substituted at render time.
type InteractiveOption struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// InteractiveContent is the content of a button or list message.
type InteractiveContent struct {
	Kind    InteractiveKind     `json:"kind"`
	Header  *InteractiveHeader  `json:"header,omitempty"`
	Body    InteractiveBody     `json:"body"`
	Footer  *InteractiveFooter  `json:"footer,omitempty"`
	Options []InteractiveOption `json:"options"`
}

// ChannelComponent is one component of an externally approved channel
// template (header, body, footer, button, ...).
type ChannelComponent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChannelHeader is the optional header of a channel template.
type ChannelHeader struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ChannelBody carries the main text of a channel template.
type ChannelBody struct {
	Text string `json:"text"`
}

// ChannelContent is the content of a provider-approved channel template.
type ChannelContent struct {
	Language   string             `json:"language"`
	Header     *ChannelHeader     `json:"header,omitempty"`
	Body       ChannelBody        `json:"body"`
	Components []ChannelComponent `json:"components,omitempty"`
}

// TemplateContent is a tagged union: exactly one branch is populated,
// selected by the owning template's Type. Stored as JSONB.
type TemplateContent struct {
	Text        *TextContent        `json:"text,omitempty"`
	Media       *MediaContent       `json:"media,omitempty"`
	Interactive *InteractiveContent `json:"interactive,omitempty"`
	Channel     *ChannelContent     `json:"channel,omitempty"`
}

// IsEmpty reports whether no branch is populated.
func (c TemplateContent) IsEmpty() bool {
	return c.Text == nil && c.Media == nil && c.Interactive == nil && c.Channel == nil
}

// ApprovalStatus is the external channel-approval state of a channel template.
type ApprovalStatus string

const (
	ApprovalStatusDraft     ApprovalStatus = "draft"
	ApprovalStatusSubmitted ApprovalStatus = "submitted"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
)

// CanTransitionTo enforces the approval state machine:
// draft -> submitted -> approved | rejected.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	switch s {
	case ApprovalStatusDraft:
		return next == ApprovalStatusSubmitted
	case ApprovalStatusSubmitted:
		return next == ApprovalStatusApproved || next == ApprovalStatusRejected
	}
	return false
}

// MessageTemplate is the authored, reusable outbound-message artifact.
// Every operation on it is tenant-scoped.
type MessageTemplate struct {
	ID          uuid.UUID    `json:"id"`
	TenantID    uuid.UUID    `json:"tenant_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	PreviewText string       `json:"preview_text,omitempty"`
	Type        TemplateType `json:"type"`

	Content TemplateContent `json:"content"`

	// Variables is the placeholder set cached at last save. It is a read
	// optimization only; re-extraction from Content is authoritative.
	Variables []string `json:"variables,omitempty"`

	// Channel-approval fields; meaningful only for TemplateTypeChannel.
	ExternalTemplateID string         `json:"external_template_id,omitempty"`
	ExternalName       string         `json:"external_name,omitempty"`
	LanguageCode       string         `json:"language_code,omitempty"`
	RequireApproval    bool           `json:"require_approval"`
	ExternalStatus     ApprovalStatus `json:"external_status,omitempty"`

	IsActive bool `json:"is_active"`

	UsageCount int64      `json:"usage_count"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy uuid.UUID `json:"created_by"`
}

// NewMessageTemplate creates a template with audit fields initialized.
// The ID is generated by the caller so it can be logged before persistence.
func NewMessageTemplate(id, tenantID uuid.UUID, name string, ttype TemplateType, content TemplateContent, createdBy uuid.UUID) *MessageTemplate {
	now := time.Now().UTC()
	status := ApprovalStatus("")
	if ttype == TemplateTypeChannel {
		status = ApprovalStatusDraft
	}
	return &MessageTemplate{
		ID:             id,
		TenantID:       tenantID,
		Name:           name,
		Type:           ttype,
		Content:        content,
		ExternalStatus: status,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      createdBy,
	}
}

// RenderedTemplate is the ephemeral output of a render call. It is owned by
// the caller and never persisted.
type RenderedTemplate struct {
	TemplateID         uuid.UUID         `json:"template_id"`
	Content            TemplateContent   `json:"content"`
	VariablesUsed      map[string]string `json:"variables_used"`
	RenderedAt         time.Time         `json:"rendered_at"`
	EstimatedSizeBytes int               `json:"estimated_size_bytes"`
}

// TemplatePreview is a non-authoritative, human-facing rendering built from
// sample data. Ephemeral.
type TemplatePreview struct {
	TemplateID         uuid.UUID         `json:"template_id"`
	PreviewText        string            `json:"preview_text"`
	PreviewHTML        string            `json:"preview_html"`
	SampleVariables    map[string]string `json:"sample_variables"`
	Warnings           []string          `json:"warnings,omitempty"`
	EstimatedSizeBytes int               `json:"estimated_size_bytes"`
	GeneratedAt        time.Time         `json:"generated_at"`
}
