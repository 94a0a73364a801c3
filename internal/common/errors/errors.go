// Package errors provides standardized error handling for the shopping pipeline
// and its BPMN workflow integration.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFilterExtractionFailed   ErrorCode = "FILTER_EXTRACTION_FAILED"
	ErrCodeLLMTimeout               ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMResponseInvalid       ErrorCode = "LLM_RESPONSE_INVALID"
	ErrCodeQuestionGenerationFailed ErrorCode = "QUESTION_GENERATION_FAILED"

	ErrCodeWebSearchFailed  ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeWebSearchTimeout ErrorCode = "WEB_SEARCH_TIMEOUT"

	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidAnswer        ErrorCode = "INVALID_ANSWER"
	ErrCodeStaleStep            ErrorCode = "STALE_STEP"
	ErrCodeStaleGeneration      ErrorCode = "STALE_GENERATION"
	ErrCodeConversationNotFound ErrorCode = "CONVERSATION_NOT_FOUND"
	ErrCodeConversationComplete ErrorCode = "CONVERSATION_COMPLETE"
	ErrCodeSessionStoreFailed   ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches another StandardError by code, so errors.Is works against the
// package-level sentinels below.
func (e *StandardError) Is(target error) bool {
	var t *StandardError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrConversationNotFound = &StandardError{Code: ErrCodeConversationNotFound}
	ErrConversationComplete = &StandardError{Code: ErrCodeConversationComplete}
	ErrInvalidAnswer        = &StandardError{Code: ErrCodeInvalidAnswer}
	ErrStaleStep            = &StandardError{Code: ErrCodeStaleStep}
	ErrStaleGeneration      = &StandardError{Code: ErrCodeStaleGeneration}
	ErrInvalidInput         = &StandardError{Code: ErrCodeInvalidInput}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewFilterExtractionFailedError wraps an LLM collaborator failure.
func NewFilterExtractionFailedError(err error) *StandardError {
	return newError(ErrCodeFilterExtractionFailed, "Filter extraction collaborator error", err.Error(), true)
}

// NewLLMTimeoutError reports an LLM call that exceeded its deadline.
func NewLLMTimeoutError(timeout time.Duration) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM collaborator timeout",
		fmt.Sprintf("call exceeded %s", timeout), true)
}

// NewLLMResponseInvalidError reports a completion that was not a usable filter record.
func NewLLMResponseInvalidError(details string) *StandardError {
	return newError(ErrCodeLLMResponseInvalid, "LLM returned malformed JSON", details, false)
}

// NewQuestionGenerationFailedError is recovered by the fallback question set.
func NewQuestionGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeQuestionGenerationFailed, "Question generation failed", err.Error(), false)
}

// NewWebSearchFailedError is scoped to one platform.
func NewWebSearchFailedError(platform string, err error) *StandardError {
	e := newError(ErrCodeWebSearchFailed, "Web search collaborator error", err.Error(), false)
	e.Metadata = map[string]interface{}{"platform": platform}
	return e
}

// NewWebSearchTimeoutError is scoped to one platform.
func NewWebSearchTimeoutError(platform string, timeout time.Duration) *StandardError {
	e := newError(ErrCodeWebSearchTimeout, "Web search collaborator timeout",
		fmt.Sprintf("call exceeded %s", timeout), false)
	e.Metadata = map[string]interface{}{"platform": platform}
	return e
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

func NewInvalidAnswerError(details string) *StandardError {
	return newError(ErrCodeInvalidAnswer, "Invalid question answer", details, false)
}

func NewStaleStepError(expected, got int) *StandardError {
	return newError(ErrCodeStaleStep, "Answer does not match the current step",
		fmt.Sprintf("currentStep: %d, submitted: %d", expected, got), false)
}

// NewStaleFacetError rejects an answer aimed at a question that is not current.
func NewStaleFacetError(expected, got string) *StandardError {
	return newError(ErrCodeStaleStep, "Answer does not match the current question",
		fmt.Sprintf("currentFacet: %s, submitted: %s", expected, got), false)
}

func NewStaleGenerationError(expected, got int64) *StandardError {
	return newError(ErrCodeStaleGeneration, "Result belongs to a superseded request",
		fmt.Sprintf("generation: %d, result: %d", expected, got), false)
}

func NewConversationNotFoundError(id string) *StandardError {
	return newError(ErrCodeConversationNotFound, "Conversation not found",
		fmt.Sprintf("conversationId: %s", id), false)
}

func NewConversationCompleteError(id string) *StandardError {
	return newError(ErrCodeConversationComplete, "Conversation is complete",
		fmt.Sprintf("conversationId: %s", id), false)
}

func NewSessionStoreFailedError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Conversation store error", err.Error(), true)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError("RESOURCE_NOT_FOUND", fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeFilterExtractionFailed,
		ErrCodeSessionStoreFailed:
		return 3

	case ErrCodeLLMTimeout:
		return 1

	default:
		// Search failures are already isolated per platform; business errors never retry.
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "QUESTION"):
		return "QUESTIONS"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "CONVERSATION") || strings.Contains(codeStr, "STALE") || strings.Contains(codeStr, "SESSION"):
		return "CONVERSATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the status the HTTP API answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeInvalidAnswer:
		return http.StatusBadRequest
	case ErrCodeConversationNotFound:
		return http.StatusNotFound
	case ErrCodeStaleStep, ErrCodeStaleGeneration, ErrCodeConversationComplete:
		return http.StatusConflict
	case ErrCodeLLMTimeout, ErrCodeWebSearchTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeFilterExtractionFailed, ErrCodeWebSearchFailed, ErrCodeLLMResponseInvalid:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsStandard normalizes any error into a StandardError.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}
