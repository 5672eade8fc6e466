package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// --- Mocks ---

type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) Create(ctx context.Context, tpl *domain.MessageTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.MessageTemplate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageTemplate), args.Error(1)
}

func (m *MockTemplateRepository) GetByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*domain.MessageTemplate, error) {
	args := m.Called(ctx, tenantID, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageTemplate), args.Error(1)
}

func (m *MockTemplateRepository) List(ctx context.Context, tenantID uuid.UUID, filter domain.TemplateFilter) ([]*domain.MessageTemplate, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.MessageTemplate), args.Get(1).(int64), args.Error(2)
}

func (m *MockTemplateRepository) Update(ctx context.Context, tpl *domain.MessageTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockTemplateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockTemplateRepository) IncrementUsage(ctx context.Context, tenantID, id uuid.UUID, usedAt time.Time) error {
	args := m.Called(ctx, tenantID, id, usedAt)
	return args.Error(0)
}

// --- Test setup ---

type appTestComponents struct {
	app      *Application
	mockRepo *MockTemplateRepository
}

func setupAppTest(t *testing.T) appTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mockRepo := new(MockTemplateRepository)
	application := NewApplication(mockRepo, nil, nil, logger, 0)
	return appTestComponents{app: application, mockRepo: mockRepo}
}

func textTemplate(tenantID uuid.UUID, text string) *domain.MessageTemplate {
	return domain.NewMessageTemplate(uuid.New(), tenantID, "order-confirmation",
		domain.TemplateTypeText, domain.TemplateContent{Text: &domain.TextContent{Text: text}}, uuid.New())
}

// --- CreateTemplate ---

func TestCreateTemplate_Success(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()

	c.mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.MessageTemplate")).Return(nil).Once()

	tpl, err := c.app.CreateTemplate(context.Background(), tenantID, CreateTemplateRequest{
		Name:    "welcome",
		Type:    domain.TemplateTypeText,
		Content: domain.TemplateContent{Text: &domain.TextContent{Text: "Olá {{name}}, bem-vinda!"}},
	})
	require.NoError(t, err)
	assert.Equal(t, tenantID, tpl.TenantID)
	assert.Equal(t, []string{"name"}, tpl.Variables)
	assert.True(t, tpl.IsActive)
	c.mockRepo.AssertExpectations(t)
}

func TestCreateTemplate_ValidationFailureReturnsAllErrorsWithoutPersisting(t *testing.T) {
	c := setupAppTest(t)

	_, err := c.app.CreateTemplate(context.Background(), uuid.New(), CreateTemplateRequest{
		Name: "",
		Type: domain.TemplateTypeMedia,
		Content: domain.TemplateContent{Media: &domain.MediaContent{Caption: "c"}},
	})
	require.Error(t, err)

	var failed *domain.ValidationFailedError
	require.ErrorAs(t, err, &failed)
	// name + media_url + media_type: every error, not just the first.
	assert.Len(t, failed.Result.Errors, 3)
	c.mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- UpdateTemplate ---

func TestUpdateTemplate_PartialFieldsOnly(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	existing := textTemplate(tenantID, "Oi {{name}}")
	existing.Description = "original description"
	existing.Variables = []string{"name"}

	c.mockRepo.On("GetByID", mock.Anything, tenantID, existing.ID).Return(existing, nil).Once()
	c.mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.MessageTemplate")).Return(nil).Once()

	newName := "greeting-v2"
	updated, err := c.app.UpdateTemplate(context.Background(), tenantID, existing.ID, UpdateTemplateRequest{
		Name: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, "greeting-v2", updated.Name)
	assert.Equal(t, "original description", updated.Description)
	assert.Equal(t, []string{"name"}, updated.Variables)
	c.mockRepo.AssertExpectations(t)
}

func TestUpdateTemplate_ContentChangeReextractsVariables(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	existing := textTemplate(tenantID, "Oi {{name}}")
	existing.Variables = []string{"name"}

	c.mockRepo.On("GetByID", mock.Anything, tenantID, existing.ID).Return(existing, nil).Once()
	c.mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.MessageTemplate")).Return(nil).Once()

	newContent := domain.TemplateContent{Text: &domain.TextContent{Text: "Pedido {{order_id}} para {{name}}"}}
	updated, err := c.app.UpdateTemplate(context.Background(), tenantID, existing.ID, UpdateTemplateRequest{
		Content: &newContent,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "name"}, updated.Variables)
}

func TestUpdateTemplate_NotFound(t *testing.T) {
	c := setupAppTest(t)
	tenantID, templateID := uuid.New(), uuid.New()

	c.mockRepo.On("GetByID", mock.Anything, tenantID, templateID).Return(nil, domain.ErrNotFound).Once()

	_, err := c.app.UpdateTemplate(context.Background(), tenantID, templateID, UpdateTemplateRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateTemplate_InvalidContentRejected(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	existing := textTemplate(tenantID, "Oi {{name}}")

	c.mockRepo.On("GetByID", mock.Anything, tenantID, existing.ID).Return(existing, nil).Once()

	empty := domain.TemplateContent{Text: &domain.TextContent{}}
	_, err := c.app.UpdateTemplate(context.Background(), tenantID, existing.ID, UpdateTemplateRequest{
		Content: &empty,
	})
	var failed *domain.ValidationFailedError
	require.ErrorAs(t, err, &failed)
	c.mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

// --- Tenant isolation ---

func TestGetTemplate_TenantMismatchIsNotFound(t *testing.T) {
	c := setupAppTest(t)
	tenantA := uuid.New()
	idBelongingToTenantB := uuid.New()

	// The repository scopes by tenant, so a foreign id surfaces as absence.
	c.mockRepo.On("GetByID", mock.Anything, tenantA, idBelongingToTenantB).Return(nil, domain.ErrNotFound).Once()

	tpl, err := c.app.GetTemplate(context.Background(), tenantA, idBelongingToTenantB)
	assert.Nil(t, tpl)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- RenderTemplate ---

func TestRenderTemplate_SuccessRecordsUsage(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	tpl := textTemplate(tenantID, "Olá {{name}}, seu pedido {{order_id}} foi confirmado.")

	c.mockRepo.On("GetByID", mock.Anything, tenantID, tpl.ID).Return(tpl, nil).Once()
	c.mockRepo.On("IncrementUsage", mock.Anything, tenantID, tpl.ID, mock.AnythingOfType("time.Time")).Return(nil).Once()

	rendered, err := c.app.RenderTemplate(context.Background(), tenantID, tpl.ID, map[string]string{
		"name":     "Maria",
		"order_id": "A123",
	})
	require.NoError(t, err)
	assert.Equal(t, "Olá Maria, seu pedido A123 foi confirmado.", rendered.Content.Text.Text)
	assert.Equal(t, len("Olá Maria, seu pedido A123 foi confirmado."), rendered.EstimatedSizeBytes)
	c.mockRepo.AssertExpectations(t)
}

func TestRenderTemplate_MissingVariableDoesNotRecordUsage(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	tpl := textTemplate(tenantID, "Hi {{name}}")

	c.mockRepo.On("GetByID", mock.Anything, tenantID, tpl.ID).Return(tpl, nil).Once()

	_, err := c.app.RenderTemplate(context.Background(), tenantID, tpl.ID, map[string]string{})
	var missing *domain.MissingVariableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "name", missing.Variable)
	c.mockRepo.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRenderTemplate_UsageFailureDoesNotFailRender(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	tpl := textTemplate(tenantID, "Oi {{name}}")

	c.mockRepo.On("GetByID", mock.Anything, tenantID, tpl.ID).Return(tpl, nil).Once()
	c.mockRepo.On("IncrementUsage", mock.Anything, tenantID, tpl.ID, mock.AnythingOfType("time.Time")).
		Return(errors.New("usage store down")).Once()

	rendered, err := c.app.RenderTemplate(context.Background(), tenantID, tpl.ID, map[string]string{"name": "Maria"})
	require.NoError(t, err)
	assert.Equal(t, "Oi Maria", rendered.Content.Text.Text)
}

// --- Usage monotonicity under concurrency ---

// atomicUsageRepo is a fake store whose IncrementUsage is a single atomic
// add, mirroring the storage-level contract.
type atomicUsageRepo struct {
	tpl *domain.MessageTemplate

	mu         sync.Mutex
	usageCount int64
}

func (r *atomicUsageRepo) Create(ctx context.Context, tpl *domain.MessageTemplate) error { return nil }
func (r *atomicUsageRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.MessageTemplate, error) {
	if tenantID != r.tpl.TenantID || id != r.tpl.ID {
		return nil, domain.ErrNotFound
	}
	cp := *r.tpl
	return &cp, nil
}
func (r *atomicUsageRepo) GetByExternalID(ctx context.Context, tenantID uuid.UUID, externalID string) (*domain.MessageTemplate, error) {
	return nil, domain.ErrNotFound
}
func (r *atomicUsageRepo) List(ctx context.Context, tenantID uuid.UUID, filter domain.TemplateFilter) ([]*domain.MessageTemplate, int64, error) {
	return nil, 0, nil
}
func (r *atomicUsageRepo) Update(ctx context.Context, tpl *domain.MessageTemplate) error { return nil }
func (r *atomicUsageRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error      { return nil }
func (r *atomicUsageRepo) IncrementUsage(ctx context.Context, tenantID, id uuid.UUID, usedAt time.Time) error {
	r.mu.Lock()
	r.usageCount++
	r.mu.Unlock()
	return nil
}

func TestRenderTemplate_ConcurrentRendersIncrementUsageExactlyN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tenantID := uuid.New()
	tpl := textTemplate(tenantID, "Oi {{name}}")
	repo := &atomicUsageRepo{tpl: tpl}
	application := NewApplication(repo, nil, nil, logger, 0)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := application.RenderTemplate(context.Background(), tenantID, tpl.ID, map[string]string{"name": "Maria"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), repo.usageCount)
}

// --- Preview ---

func TestPreviewTemplate_SynthesizesWhenNoSampleData(t *testing.T) {
	c := setupAppTest(t)
	tenantID := uuid.New()
	tpl := textTemplate(tenantID, "Olá {{name}}")

	c.mockRepo.On("GetByID", mock.Anything, tenantID, tpl.ID).Return(tpl, nil).Once()

	preview, err := c.app.PreviewTemplate(context.Background(), tenantID, tpl.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Olá Maria", preview.PreviewText)
	// Previews never record usage.
	c.mockRepo.AssertNotCalled(t, "IncrementUsage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- Delete ---

func TestDeleteTemplate_PropagatesNotFound(t *testing.T) {
	c := setupAppTest(t)
	tenantID, templateID := uuid.New(), uuid.New()

	c.mockRepo.On("Delete", mock.Anything, tenantID, templateID).Return(domain.ErrNotFound).Once()

	err := c.app.DeleteTemplate(context.Background(), tenantID, templateID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
