package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zapdesk/golang_services/internal/template_service/app"
	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// TemplateHandler exposes the template engine over HTTP.
type TemplateHandler struct {
	app      *app.Application
	logger   *slog.Logger
	validate *validator.Validate
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(application *app.Application, logger *slog.Logger, validate *validator.Validate) *TemplateHandler {
	return &TemplateHandler{
		app:      application,
		logger:   logger,
		validate: validate,
	}
}

// RegisterRoutes sets up routing for template operations.
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Post("/templates", h.CreateTemplate)
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates/validate", h.ValidateTemplate)
	r.Get("/templates/{templateID}", h.GetTemplate)
	r.Put("/templates/{templateID}", h.UpdateTemplate)
	r.Delete("/templates/{templateID}", h.DeleteTemplate)
	r.Post("/templates/{templateID}/render", h.RenderTemplate)
	r.Post("/templates/{templateID}/preview", h.PreviewTemplate)
	r.Post("/templates/{templateID}/submit-approval", h.SubmitForApproval)
	r.Get("/templates/{templateID}/approval-status", h.CheckApprovalStatus)
	r.Post("/templates/sync", h.SyncTemplates)
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Default().Error("Failed to write JSON response", "error", err)
		}
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithDomainError maps engine errors to HTTP statuses. Validation
// failures carry the full error+warning lists so UIs can highlight every
// problematic field at once.
func (h *TemplateHandler) respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationFailed *domain.ValidationFailedError
	var missingVar *domain.MissingVariableError
	var renderErr *domain.RenderError
	var rejected *domain.ProviderRejectedError
	var badTransition *domain.InvalidTransitionError

	switch {
	case errors.As(err, &validationFailed):
		respondWithJSON(w, http.StatusBadRequest, validationFailed.Result)
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "template not found")
	case errors.As(err, &missingVar):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &badTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrApprovalNotSupported), errors.Is(err, app.ErrNoApprovalProvider):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrProviderUnavailable):
		respondWithError(w, http.StatusServiceUnavailable, "approval provider unavailable, retry later")
	case errors.As(err, &rejected):
		respondWithError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &renderErr):
		h.logger.ErrorContext(r.Context(), "Render failed on stored content", "error", err)
		respondWithError(w, http.StatusInternalServerError, "template content could not be rendered")
	default:
		h.logger.ErrorContext(r.Context(), "Unhandled engine error", "error", err)
		respondWithError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *TemplateHandler) tenantAndTemplateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing tenant context")
		return uuid.Nil, uuid.Nil, false
	}
	templateID, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid template ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, templateID, true
}

func (h *TemplateHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantFromContext(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing tenant context")
		return
	}

	var reqDTO CreateTemplateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	tpl, err := h.app.CreateTemplate(ctx, tenantID, app.CreateTemplateRequest{
		Name:            reqDTO.Name,
		Description:     reqDTO.Description,
		Category:        reqDTO.Category,
		Tags:            reqDTO.Tags,
		PreviewText:     reqDTO.PreviewText,
		Type:            domain.TemplateType(reqDTO.Type),
		Content:         reqDTO.Content,
		LanguageCode:    reqDTO.LanguageCode,
		RequireApproval: reqDTO.RequireApproval,
		CreatedBy:       userFromContext(ctx),
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, tpl)
}

func (h *TemplateHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}
	tpl, err := h.app.GetTemplate(r.Context(), tenantID, templateID)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing tenant context")
		return
	}

	filter := listFilterFromQuery(r)
	templates, total, err := h.app.ListTemplates(r.Context(), tenantID, filter)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*domain.MessageTemplate{}
	}
	respondWithJSON(w, http.StatusOK, ListTemplatesResponseDTO{
		Templates:  templates,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

func (h *TemplateHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}

	var reqDTO UpdateTemplateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	tpl, err := h.app.UpdateTemplate(r.Context(), tenantID, templateID, app.UpdateTemplateRequest{
		Name:            reqDTO.Name,
		Description:     reqDTO.Description,
		Category:        reqDTO.Category,
		Tags:            reqDTO.Tags,
		PreviewText:     reqDTO.PreviewText,
		Content:         reqDTO.Content,
		LanguageCode:    reqDTO.LanguageCode,
		RequireApproval: reqDTO.RequireApproval,
		IsActive:        reqDTO.IsActive,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tpl)
}

func (h *TemplateHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}
	if err := h.app.DeleteTemplate(r.Context(), tenantID, templateID); err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TemplateHandler) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}

	var reqDTO RenderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	rendered, err := h.app.RenderTemplate(r.Context(), tenantID, templateID, coerceVariables(reqDTO.Variables))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, RenderResponseDTO{
		TemplateID:         rendered.TemplateID.String(),
		Content:            rendered.Content,
		VariablesUsed:      rendered.VariablesUsed,
		RenderedAt:         rendered.RenderedAt,
		EstimatedSizeBytes: rendered.EstimatedSizeBytes,
	})
}

func (h *TemplateHandler) PreviewTemplate(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}

	var reqDTO PreviewRequestDTO
	if r.Body != nil {
		// An empty body means "synthesize sample data".
		_ = json.NewDecoder(r.Body).Decode(&reqDTO)
		defer r.Body.Close()
	}

	preview, err := h.app.PreviewTemplate(r.Context(), tenantID, templateID, coerceVariables(reqDTO.SampleData))
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, preview)
}

// ValidateTemplate dry-validates a template shape without persisting anything.
func (h *TemplateHandler) ValidateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := tenantFromContext(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing tenant context")
		return
	}

	var reqDTO ValidateTemplateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	tpl := domain.NewMessageTemplate(uuid.Nil, tenantID, reqDTO.Name,
		domain.TemplateType(reqDTO.Type), reqDTO.Content, uuid.Nil)
	tpl.Description = reqDTO.Description
	tpl.Category = reqDTO.Category

	respondWithJSON(w, http.StatusOK, h.app.ValidateTemplate(tpl))
}

func (h *TemplateHandler) SubmitForApproval(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}
	tpl, err := h.app.SubmitForApproval(r.Context(), tenantID, templateID)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, tpl)
}

func (h *TemplateHandler) CheckApprovalStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, templateID, ok := h.tenantAndTemplateID(w, r)
	if !ok {
		return
	}
	status, err := h.app.CheckApprovalStatus(r.Context(), tenantID, templateID)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ApprovalStatusResponseDTO{
		TemplateID: templateID.String(),
		Status:     string(status),
	})
}

func (h *TemplateHandler) SyncTemplates(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenantFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "missing tenant context")
		return
	}
	report, err := h.app.SyncTemplates(r.Context(), tenantID)
	if err != nil {
		h.respondWithDomainError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// listFilterFromQuery parses the List query parameters.
func listFilterFromQuery(r *http.Request) domain.TemplateFilter {
	q := r.URL.Query()
	filter := domain.TemplateFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_dir") == "desc",
	}

	if v := q.Get("type"); v != "" {
		t := domain.TemplateType(v)
		if t.IsValid() {
			filter.Type = &t
		}
	}
	if tags, ok := q["tag"]; ok {
		filter.Tags = tags
	}
	if v := q.Get("is_active"); v != "" {
		b := v == "true"
		filter.IsActive = &b
	}
	if v := q.Get("require_approval"); v != "" {
		b := v == "true"
		filter.RequireApproval = &b
	}
	if v := q.Get("approval_status"); v != "" {
		s := domain.ApprovalStatus(v)
		filter.ExternalStatus = &s
	}
	if v := q.Get("created_by"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			filter.CreatedBy = &id
		}
	}
	if v := q.Get("created_after"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedAfter = &ts
		}
	}
	if v := q.Get("created_before"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			filter.CreatedBefore = &ts
		}
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter
}
