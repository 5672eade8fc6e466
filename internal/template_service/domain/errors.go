package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the template does not exist for the requesting
	// tenant. A tenant mismatch is deliberately indistinguishable from absence.
	ErrNotFound = errors.New("template not found")
	// ErrDuplicateEntry indicates a unique constraint violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrProviderUnavailable indicates a transient approval-provider failure;
	// callers may retry.
	ErrProviderUnavailable = errors.New("approval provider unavailable")
)

// ValidationIssue is one structural problem or advisory found by validation.
type ValidationIssue struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult is the full outcome of validating a template.
// IsValid is true iff Errors is empty; warnings never affect validity.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
}

// ValidationFailedError carries the complete ValidationResult so callers can
// surface every problematic field at once, never just the first.
type ValidationFailedError struct {
	Result ValidationResult
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("template validation failed with %d error(s)", len(e.Result.Errors))
}

// MissingVariableError is a render-time failure: a placeholder present in
// content has no matching key in the input map. Always fatal to that render;
// no partial output is ever produced.
type MissingVariableError struct {
	Variable string
	// Component names the offending channel-template component, when relevant.
	Component string
}

func (e *MissingVariableError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("missing variable %q in component %q", e.Variable, e.Component)
	}
	return fmt.Sprintf("missing variable %q", e.Variable)
}

// RenderError indicates persisted content that cannot be substituted at all
// (corrupted or mismatched with the declared type). Internal, not caller-fixable.
type RenderError struct {
	Reason string
}

func (e *RenderError) Error() string {
	return "render failed: " + e.Reason
}

// ProviderRejectedError is a terminal approval-provider refusal; retrying the
// same request will not succeed.
type ProviderRejectedError struct {
	Code    string
	Message string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("approval provider rejected request (%s): %s", e.Code, e.Message)
}

// InvalidTransitionError reports an approval state-machine violation.
type InvalidTransitionError struct {
	From ApprovalStatus
	To   ApprovalStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid approval transition %s -> %s", e.From, e.To)
}
