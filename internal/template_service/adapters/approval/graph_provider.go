package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/zapdesk/golang_services/internal/template_service/domain"
)

// GraphProvider talks to a Meta graph-style message-template review API.
// All calls carry a bounded timeout via the injected http.Client so a slow
// provider surfaces as a retryable error instead of hanging the caller.
type GraphProvider struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewGraphProvider creates a GraphProvider. apiKey is expected to come from
// the secrets decryptor at wiring time; it is never logged.
func NewGraphProvider(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *GraphProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GraphProvider{
		logger:     logger.With("provider", "graph"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

type graphSubmitRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Category string `json:"category"`
	BodyText string `json:"body_text"`
}

type graphTemplateResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Category string `json:"category"`
	Status   string `json:"status"`
	BodyText string `json:"body_text"`
}

type graphListResponse struct {
	Data []graphTemplateResponse `json:"data"`
}

type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *GraphProvider) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(graphSubmitRequest{
		Name:     req.Name,
		Language: req.Language,
		Category: req.Category,
		BodyText: req.BodyText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submit request: %w", err)
	}

	var resp graphTemplateResponse
	if err := p.do(ctx, http.MethodPost, p.apiURL+"/message_templates", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}
	p.logger.InfoContext(ctx, "GraphProvider: template submitted", "name", req.Name, "external_id", resp.ID)
	return resp.ID, nil
}

func (p *GraphProvider) Status(ctx context.Context, externalID string) (domain.ApprovalStatus, error) {
	var resp graphTemplateResponse
	endpoint := p.apiURL + "/message_templates/" + url.PathEscape(externalID)
	if err := p.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", err
	}
	return mapRemoteStatus(resp.Status), nil
}

func (p *GraphProvider) ListTemplates(ctx context.Context) ([]RemoteTemplate, error) {
	var resp graphListResponse
	if err := p.do(ctx, http.MethodGet, p.apiURL+"/message_templates", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]RemoteTemplate, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, RemoteTemplate{
			ExternalID: item.ID,
			Name:       item.Name,
			Language:   item.Language,
			Category:   item.Category,
			Status:     mapRemoteStatus(item.Status),
			BodyText:   item.BodyText,
		})
	}
	return out, nil
}

func (p *GraphProvider) Name() string {
	return "GraphProvider"
}

// do executes one provider request and decodes the response into out.
// Network failures and 5xx map to the retryable domain.ErrProviderUnavailable;
// 4xx maps to the terminal *domain.ProviderRejectedError.
func (p *GraphProvider) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WarnContext(ctx, "GraphProvider: request failed", "method", method, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrProviderUnavailable, err)
	}

	switch {
	case httpResp.StatusCode >= 500:
		p.logger.WarnContext(ctx, "GraphProvider: server error", "status", httpResp.StatusCode)
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, httpResp.StatusCode)
	case httpResp.StatusCode >= 400:
		var errResp graphErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr != nil || errResp.Error.Message == "" {
			return &domain.ProviderRejectedError{
				Code:    fmt.Sprintf("http_%d", httpResp.StatusCode),
				Message: string(respBody),
			}
		}
		return &domain.ProviderRejectedError{Code: errResp.Error.Code, Message: errResp.Error.Message}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode provider response: %w", err)
		}
	}
	return nil
}

// mapRemoteStatus translates the provider's status vocabulary to ours.
// Unknown values conservatively stay submitted rather than guessing approval.
func mapRemoteStatus(remote string) domain.ApprovalStatus {
	switch remote {
	case "APPROVED", "approved":
		return domain.ApprovalStatusApproved
	case "REJECTED", "rejected":
		return domain.ApprovalStatusRejected
	case "PENDING", "pending", "IN_REVIEW", "submitted":
		return domain.ApprovalStatusSubmitted
	case "DRAFT", "draft":
		return domain.ApprovalStatusDraft
	default:
		return domain.ApprovalStatusSubmitted
	}
}
