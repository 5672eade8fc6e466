package approval

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// MockProvider is a test implementation of Provider. Submitted templates are
// held in memory; AutoApprove controls what Status reports for them.
type MockProvider struct {
	logger         *slog.Logger
	FailCalls      bool          // simulate provider outage
	SimulatedDelay time.Duration // simulate network latency
	AutoApprove    bool          // submitted templates report approved on next Status

	mu        sync.Mutex
	submitted map[string]RemoteTemplate
}

// NewMockProvider creates a MockProvider.
func NewMockProvider(logger *slog.Logger, failCalls bool, delay time.Duration) *MockProvider {
	return &MockProvider{
		logger:         logger.With("provider", "mock"),
		FailCalls:      failCalls,
		SimulatedDelay: delay,
		submitted:      make(map[string]RemoteTemplate),
	}
}

func (p *MockProvider) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if p.SimulatedDelay > 0 {
		time.Sleep(p.SimulatedDelay)
	}
	if p.FailCalls {
		p.logger.WarnContext(ctx, "MockProvider: simulated submit failure", "name", req.Name)
		return "", domain.ErrProviderUnavailable
	}

	externalID := "mock-" + uuid.NewString()
	p.mu.Lock()
	p.submitted[externalID] = RemoteTemplate{
		ExternalID: externalID,
		Name:       req.Name,
		Language:   req.Language,
		Category:   req.Category,
		Status:     domain.ApprovalStatusSubmitted,
		BodyText:   req.BodyText,
	}
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "MockProvider: template submitted", "name", req.Name, "external_id", externalID)
	return externalID, nil
}

func (p *MockProvider) Status(ctx context.Context, externalID string) (domain.ApprovalStatus, error) {
	if p.SimulatedDelay > 0 {
		time.Sleep(p.SimulatedDelay)
	}
	if p.FailCalls {
		return "", domain.ErrProviderUnavailable
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	remote, ok := p.submitted[externalID]
	if !ok {
		return "", &domain.ProviderRejectedError{Code: "unknown_template", Message: "external id not found"}
	}
	if p.AutoApprove && remote.Status == domain.ApprovalStatusSubmitted {
		remote.Status = domain.ApprovalStatusApproved
		p.submitted[externalID] = remote
	}
	return remote.Status, nil
}

func (p *MockProvider) ListTemplates(ctx context.Context) ([]RemoteTemplate, error) {
	if p.FailCalls {
		return nil, domain.ErrProviderUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]RemoteTemplate, 0, len(p.submitted))
	for _, remote := range p.submitted {
		out = append(out, remote)
	}
	return out, nil
}

// Seed injects a remote template, for sync tests.
func (p *MockProvider) Seed(remote RemoteTemplate) {
	p.mu.Lock()
	p.submitted[remote.ExternalID] = remote
	p.mu.Unlock()
}

func (p *MockProvider) Name() string {
	return "MockProvider"
}
