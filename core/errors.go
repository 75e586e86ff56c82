package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Machine-readable text codes carried on every client error envelope. The
// codes mirror the wire-level `error` field the 1Sub API returns.
const (
	ErrorCodeUnauthorized        = "UNAUTHORIZED"
	ErrorCodeNotFound            = "NOT_FOUND"
	ErrorCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrorCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
	ErrorCodeValidation          = "VALIDATION_ERROR"
	ErrorCodeInvalidCode         = "INVALID_CODE"
	ErrorCodeWebhookVerification = "WEBHOOK_VERIFICATION_FAILED"
	ErrorCodeAPI                 = "API_ERROR"
	ErrorCodeTimeout             = "TIMEOUT"
	ErrorCodeNetwork             = "NETWORK_ERROR"
)

// Defaults applied when a 429 response omits pacing fields.
const (
	defaultRetryAfterSeconds = 60
	defaultRateLimitQuota    = 100
)

// RateLimitError reports a 429 from the API together with the pacing fields
// the server returned. RetryAfter is expressed in seconds.
type RateLimitError struct {
	Message    string
	RetryAfter int
	Limit      int
	Remaining  int
}

func (e *RateLimitError) Error() string {
	msg := "Rate limit exceeded"
	if e != nil && strings.TrimSpace(e.Message) != "" {
		msg = strings.TrimSpace(e.Message)
	}
	retryAfter := 0
	if e != nil {
		retryAfter = e.RetryAfter
	}
	return fmt.Sprintf("%s (retry after %ds)", msg, retryAfter)
}

func (e *RateLimitError) ToClientError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return goerrors.Wrap(e, goerrors.CategoryRateLimit, e.Error()).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(ErrorCodeRateLimited).
		WithMetadata(map[string]any{
			"retry_after": e.RetryAfter,
			"limit":       e.Limit,
			"remaining":   e.Remaining,
		})
}

// InsufficientCreditsError reports a credit consumption attempt against a
// balance that cannot cover it.
type InsufficientCreditsError struct {
	Message        string
	CurrentBalance int
	Required       int
}

// Shortfall is the number of credits missing to satisfy the request.
func (e *InsufficientCreditsError) Shortfall() int {
	if e == nil {
		return 0
	}
	return e.Required - e.CurrentBalance
}

func (e *InsufficientCreditsError) Error() string {
	msg := "Insufficient credits"
	if e != nil && strings.TrimSpace(e.Message) != "" {
		msg = strings.TrimSpace(e.Message)
	}
	if e == nil {
		return msg
	}
	return fmt.Sprintf("%s (balance %d, required %d)", msg, e.CurrentBalance, e.Required)
}

func (e *InsufficientCreditsError) ToClientError() *goerrors.Error {
	if e == nil {
		return nil
	}
	return goerrors.Wrap(e, goerrors.CategoryOperation, e.Error()).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeInsufficientCredits).
		WithMetadata(map[string]any{
			"current_balance": e.CurrentBalance,
			"required":        e.Required,
			"shortfall":       e.Shortfall(),
		})
}

// MapAPIStatus converts a non-2xx API response into a typed error envelope.
// body is the decoded JSON error payload; a nil map is accepted.
func MapAPIStatus(status int, body map[string]any) *goerrors.Error {
	message := apiMessage(body)

	switch {
	case status == http.StatusUnauthorized:
		return ensureClientErrorEnvelope(
			goerrors.New(orDefault(message, "Invalid API key"), goerrors.CategoryAuth).
				WithCode(http.StatusUnauthorized).
				WithTextCode(ErrorCodeUnauthorized),
		)
	case status == http.StatusNotFound:
		return ensureClientErrorEnvelope(
			goerrors.New(orDefault(message, "Resource not found"), goerrors.CategoryNotFound).
				WithCode(http.StatusNotFound).
				WithTextCode(ErrorCodeNotFound),
		)
	case status == http.StatusTooManyRequests:
		rle := &RateLimitError{
			Message:    message,
			RetryAfter: ReadInt(body, defaultRetryAfterSeconds, "retry_after", "retryAfter"),
			Limit:      ReadInt(body, defaultRateLimitQuota, "limit"),
			Remaining:  ReadInt(body, 0, "remaining"),
		}
		return rle.ToClientError()
	case status == http.StatusBadRequest && ReadString(body, "error") == ErrorCodeInsufficientCredits:
		ice := &InsufficientCreditsError{
			Message:        message,
			CurrentBalance: ReadInt(body, 0, "current_balance", "currentBalance"),
			Required:       ReadInt(body, 0, "required"),
		}
		return ice.ToClientError()
	case status == http.StatusBadRequest:
		return ensureClientErrorEnvelope(
			goerrors.New(orDefault(message, "Validation failed"), goerrors.CategoryValidation).
				WithCode(http.StatusBadRequest).
				WithTextCode(ErrorCodeValidation).
				WithMetadata(copyAnyMap(body)),
		)
	default:
		return ensureClientErrorEnvelope(
			goerrors.New(orDefault(message, fmt.Sprintf("API error (status %d)", status)), goerrors.CategoryExternal).
				WithCode(status).
				WithTextCode(ErrorCodeAPI).
				WithMetadata(copyAnyMap(body)),
		)
	}
}

// NewAPIError reports a failure the API surfaced without a more specific
// mapping, keyed by the HTTP status it arrived with.
func NewAPIError(status int, message string) *goerrors.Error {
	return ensureClientErrorEnvelope(
		goerrors.New(orDefault(message, fmt.Sprintf("API error (status %d)", status)), goerrors.CategoryExternal).
			WithCode(status).
			WithTextCode(ErrorCodeAPI),
	)
}

// NewWebhookVerificationError builds the error surfaced when an inbound
// webhook fails signature verification or post-verification decoding.
func NewWebhookVerificationError(message string) *goerrors.Error {
	return goerrors.New(orDefault(message, "Webhook signature verification failed"), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ErrorCodeWebhookVerification)
}

// NewTimeoutError wraps a request deadline failure.
func NewTimeoutError(cause error) *goerrors.Error {
	if cause == nil {
		return goerrors.New("Request timed out", goerrors.CategoryOperation).
			WithCode(http.StatusRequestTimeout).
			WithTextCode(ErrorCodeTimeout)
	}
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "Request timed out").
		WithCode(http.StatusRequestTimeout).
		WithTextCode(ErrorCodeTimeout)
}

// NewNetworkError wraps a connection-level failure that never produced an
// HTTP status.
func NewNetworkError(cause error) *goerrors.Error {
	if cause == nil {
		return goerrors.New("Network error", goerrors.CategoryExternal).
			WithTextCode(ErrorCodeNetwork)
	}
	return goerrors.Wrap(cause, goerrors.CategoryExternal, "Network error").
		WithTextCode(ErrorCodeNetwork)
}

// NewValidationError builds a client-side input validation failure.
func NewValidationError(message string, fields ...goerrors.FieldError) *goerrors.Error {
	if len(fields) == 0 {
		return goerrors.New(message, goerrors.CategoryValidation).
			WithCode(http.StatusBadRequest).
			WithTextCode(ErrorCodeValidation)
	}
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeValidation)
}

// NewInvalidCodeError reports a malformed one-time link code.
func NewInvalidCodeError(message string) *goerrors.Error {
	return goerrors.New(orDefault(message, "Invalid code format"), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorCodeInvalidCode)
}

// ClientErrorMapper normalizes any error into a client error envelope,
// preserving envelopes that already carry a code and text code.
func ClientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorCodeValidation
	case goerrors.CategoryNotFound:
		return ErrorCodeNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorCodeUnauthorized
	case goerrors.CategoryRateLimit:
		return ErrorCodeRateLimited
	case goerrors.CategoryOperation:
		return ErrorCodeTimeout
	case goerrors.CategoryExternal:
		return ErrorCodeAPI
	default:
		return ErrorCodeAPI
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func apiMessage(body map[string]any) string {
	if msg := ReadString(body, "message"); msg != "" {
		return msg
	}
	return ReadString(body, "error")
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
