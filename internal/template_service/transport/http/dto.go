package http

import (
	"fmt"
	"time"

	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// CreateTemplateRequestDTO is the JSON body for POST /templates.
type CreateTemplateRequestDTO struct {
	Name            string                 `json:"name" validate:"required,max=120"`
	Description     string                 `json:"description" validate:"max=500"`
	Category        string                 `json:"category" validate:"max=80"`
	Tags            []string               `json:"tags" validate:"max=20,dive,max=40"`
	PreviewText     string                 `json:"preview_text" validate:"max=200"`
	Type            string                 `json:"type" validate:"required,oneof=text media interactive channel_template"`
	Content         domain.TemplateContent `json:"content" validate:"required"`
	LanguageCode    string                 `json:"language_code" validate:"max=10"`
	RequireApproval bool                   `json:"require_approval"`
}

// UpdateTemplateRequestDTO is the JSON body for PUT /templates/{id}.
// Absent fields are left untouched; type is immutable and not updatable.
type UpdateTemplateRequestDTO struct {
	Name            *string                 `json:"name" validate:"omitempty,max=120"`
	Description     *string                 `json:"description" validate:"omitempty,max=500"`
	Category        *string                 `json:"category" validate:"omitempty,max=80"`
	Tags            *[]string               `json:"tags" validate:"omitempty,max=20,dive,max=40"`
	PreviewText     *string                 `json:"preview_text" validate:"omitempty,max=200"`
	Content         *domain.TemplateContent `json:"content"`
	LanguageCode    *string                 `json:"language_code" validate:"omitempty,max=10"`
	RequireApproval *bool                   `json:"require_approval"`
	IsActive        *bool                   `json:"is_active"`
}

// RenderRequestDTO is the JSON body for POST /templates/{id}/render.
// Values may be strings or numbers; everything is coerced to string before
// substitution.
type RenderRequestDTO struct {
	Variables map[string]any `json:"variables"`
}

// PreviewRequestDTO is the JSON body for POST /templates/{id}/preview.
type PreviewRequestDTO struct {
	SampleData map[string]any `json:"sample_data"`
}

// ValidateTemplateRequestDTO mirrors the create shape for dry validation.
type ValidateTemplateRequestDTO CreateTemplateRequestDTO

// ListTemplatesResponseDTO wraps one page of templates.
type ListTemplatesResponseDTO struct {
	Templates  []*domain.MessageTemplate `json:"templates"`
	TotalCount int64                     `json:"total_count"`
	Limit      int                       `json:"limit"`
	Offset     int                       `json:"offset"`
}

// RenderResponseDTO is the rendered artifact handed to the send pipeline.
type RenderResponseDTO struct {
	TemplateID         string                 `json:"template_id"`
	Content            domain.TemplateContent `json:"content"`
	VariablesUsed      map[string]string      `json:"variables_used"`
	RenderedAt         time.Time              `json:"rendered_at"`
	EstimatedSizeBytes int                    `json:"estimated_size_bytes"`
}

// ApprovalStatusResponseDTO reports the external review state.
type ApprovalStatusResponseDTO struct {
	TemplateID string `json:"template_id"`
	Status     string `json:"status"`
}

// coerceVariables flattens a JSON variable map to the string values the
// substitution engine works with.
func coerceVariables(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			// JSON numbers arrive as float64; print integers without a decimal point.
			if val == float64(int64(val)) {
				out[k] = fmt.Sprintf("%d", int64(val))
			} else {
				out[k] = fmt.Sprintf("%g", val)
			}
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
