package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// PgxIface is the subset of pgxpool.Pool this repository needs. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgTemplateRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgTemplateRepository(db PgxIface, logger *slog.Logger) *PgTemplateRepository {
	return &PgTemplateRepository{db: db, logger: logger.With("component", "template_repository_pg")}
}

const templateColumns = `id, tenant_id, name, description, category, tags, preview_text, type, content, variables,
	external_template_id, external_name, language_code, require_approval, external_status,
	is_active, usage_count, last_used_at, created_at, created_by, updated_at`

func (r *PgTemplateRepository) Create(ctx context.Context, tpl *domain.MessageTemplate) error {
	query := `
		INSERT INTO message_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`
	contentJSON, err := json.Marshal(tpl.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal template content: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		tpl.ID, tpl.TenantID, tpl.Name, tpl.Description, tpl.Category, tpl.Tags, tpl.PreviewText,
		tpl.Type, contentJSON, tpl.Variables,
		tpl.ExternalTemplateID, tpl.ExternalName, tpl.LanguageCode, tpl.RequireApproval, tpl.ExternalStatus,
		tpl.IsActive, tpl.UsageCount, tpl.LastUsedAt, tpl.CreatedAt, tpl.CreatedBy, tpl.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.WarnContext(ctx, "Duplicate template", "error", err, "tenant_id", tpl.TenantID, "name", tpl.Name)
			return domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error creating template", "error", err, "template_id", tpl.ID, "tenant_id", tpl.TenantID)
		return err
	}
	r.logger.InfoContext(ctx, "Template created", "template_id", tpl.ID, "tenant_id", tpl.TenantID)
	return nil
}

func (r *PgTemplateRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates WHERE id = $1 AND tenant_id = $2`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Absence and tenant mismatch are indistinguishable on purpose.
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting template by ID", "error", err, "template_id", id, "tenant_id", tenantID)
		return nil, err
	}
	return tpl, nil
}

func (r *PgTemplateRepository) GetByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*domain.MessageTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM message_templates WHERE external_template_id = $1 AND tenant_id = $2`
	tpl, err := scanTemplate(r.db.QueryRow(ctx, query, externalID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting template by external ID", "error", err, "external_id", externalID, "tenant_id", tenantID)
		return nil, err
	}
	return tpl, nil
}

func (r *PgTemplateRepository) List(ctx context.Context, tenantID uuid.UUID, filter domain.TemplateFilter) ([]*domain.MessageTemplate, int64, error) {
	where, args := buildListWhere(tenantID, filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM message_templates ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.ErrorContext(ctx, "Error counting templates", "error", err, "tenant_id", tenantID)
		return nil, 0, err
	}

	query := `SELECT ` + templateColumns + ` FROM message_templates ` + where +
		` ORDER BY ` + sortClause(filter) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageLimit(filter.Limit), filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing templates", "error", err, "tenant_id", tenantID)
		return nil, 0, err
	}
	defer rows.Close()

	var templates []*domain.MessageTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			r.logger.ErrorContext(ctx, "Error scanning template row", "error", err, "tenant_id", tenantID)
			return nil, 0, err
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating template rows", "error", err, "tenant_id", tenantID)
		return nil, 0, err
	}
	return templates, total, nil
}

func (r *PgTemplateRepository) Update(ctx context.Context, tpl *domain.MessageTemplate) error {
	query := `
		UPDATE message_templates
		SET name = $1, description = $2, category = $3, tags = $4, preview_text = $5,
		    content = $6, variables = $7,
		    external_template_id = $8, external_name = $9, language_code = $10,
		    require_approval = $11, external_status = $12, is_active = $13, updated_at = $14
		WHERE id = $15 AND tenant_id = $16
	`
	contentJSON, err := json.Marshal(tpl.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal template content: %w", err)
	}

	tag, err := r.db.Exec(ctx, query,
		tpl.Name, tpl.Description, tpl.Category, tpl.Tags, tpl.PreviewText,
		contentJSON, tpl.Variables,
		tpl.ExternalTemplateID, tpl.ExternalName, tpl.LanguageCode,
		tpl.RequireApproval, tpl.ExternalStatus, tpl.IsActive, tpl.UpdatedAt,
		tpl.ID, tpl.TenantID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating template", "error", err, "template_id", tpl.ID, "tenant_id", tpl.TenantID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `DELETE FROM message_templates WHERE id = $1 AND tenant_id = $2`
	tag, err := r.db.Exec(ctx, query, id, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error deleting template", "error", err, "template_id", id, "tenant_id", tenantID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.InfoContext(ctx, "Template deleted", "template_id", id, "tenant_id", tenantID)
	return nil
}

// IncrementUsage is a single atomic add at the storage layer so concurrent
// renders never lose updates. Never read-modify-write in application code.
func (r *PgTemplateRepository) IncrementUsage(ctx context.Context, tenantID, id uuid.UUID, usedAt time.Time) error {
	query := `
		UPDATE message_templates
		SET usage_count = usage_count + 1, last_used_at = $1
		WHERE id = $2 AND tenant_id = $3
	`
	tag, err := r.db.Exec(ctx, query, usedAt, id, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error incrementing template usage", "error", err, "template_id", id, "tenant_id", tenantID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTemplate(row pgx.Row) (*domain.MessageTemplate, error) {
	var tpl domain.MessageTemplate
	var contentJSON []byte

	err := row.Scan(
		&tpl.ID, &tpl.TenantID, &tpl.Name, &tpl.Description, &tpl.Category, &tpl.Tags, &tpl.PreviewText,
		&tpl.Type, &contentJSON, &tpl.Variables,
		&tpl.ExternalTemplateID, &tpl.ExternalName, &tpl.LanguageCode, &tpl.RequireApproval, &tpl.ExternalStatus,
		&tpl.IsActive, &tpl.UsageCount, &tpl.LastUsedAt, &tpl.CreatedAt, &tpl.CreatedBy, &tpl.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contentJSON, &tpl.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template content: %w", err)
	}
	return &tpl, nil
}

// buildListWhere assembles the WHERE clause for List with positional args.
func buildListWhere(tenantID uuid.UUID, filter domain.TemplateFilter) (string, []any) {
	clauses := []string{"tenant_id = $1"}
	args := []any{tenantID}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Type != nil {
		add("type = $%d", *filter.Type)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Search != "" {
		add("(name ILIKE $%d OR description ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if len(filter.Tags) > 0 {
		add("tags @> $%d", filter.Tags)
	}
	if filter.IsActive != nil {
		add("is_active = $%d", *filter.IsActive)
	}
	if filter.RequireApproval != nil {
		add("require_approval = $%d", *filter.RequireApproval)
	}
	if filter.ExternalStatus != nil {
		add("external_status = $%d", *filter.ExternalStatus)
	}
	if filter.CreatedBy != nil {
		add("created_by = $%d", *filter.CreatedBy)
	}
	if filter.CreatedAfter != nil {
		add("created_at >= $%d", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		add("created_at <= $%d", *filter.CreatedBefore)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// sortClause whitelists sortable columns; anything else falls back to
// created_at so filter input can never inject SQL.
func sortClause(filter domain.TemplateFilter) string {
	column := "created_at"
	switch filter.SortBy {
	case "name", "category", "created_at", "updated_at", "usage_count":
		column = filter.SortBy
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	return column + " " + direction
}

func pageLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
