package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded indicates the API quota was exceeded
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrNoChoices is returned when the API response has no choices
	ErrNoChoices = errors.New("no choices in response")
	// ErrNoSuggestions is returned when the model answered with no usable ideas
	ErrNoSuggestions = errors.New("no suggestions in response")
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // quota errors are permanent, rate limits are not
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Unwrap lets errors.Is match ErrRateLimited and ErrQuotaExceeded
func (e *APIError) Unwrap() error {
	if e.StatusCode != 429 {
		return nil
	}
	if e.IsPermanent {
		return ErrQuotaExceeded
	}
	return ErrRateLimited
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.IsPermanent
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "billing")
}

// ExtractAPIError pulls 429 details out of an SDK error message.
// It returns nil for anything that is not a rate or quota failure.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "429") {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    errStr,
		Type:       "rate_limit_error",
	}

	// SDK errors usually embed the JSON body
	if jsonStart := strings.Index(errStr, "{"); jsonStart != -1 {
		jsonStr := errStr[jsonStart:]
		if jsonEnd := strings.LastIndex(jsonStr, "}"); jsonEnd != -1 {
			var body struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    string `json:"code"`
				Error   *struct {
					Message string `json:"message"`
					Type    string `json:"type"`
					Code    string `json:"code"`
				} `json:"error"`
			}
			if json.Unmarshal([]byte(jsonStr[:jsonEnd+1]), &body) == nil {
				if body.Error != nil {
					body.Message, body.Type, body.Code = body.Error.Message, body.Error.Type, body.Error.Code
				}
				if body.Message != "" {
					apiErr.Message = body.Message
				}
				if body.Type != "" {
					apiErr.Type = body.Type
				}
				apiErr.Code = body.Code
				apiErr.IsPermanent = body.Code == "insufficient_quota"
			}
		}
	}

	retryAfter := 60 * time.Second
	if apiErr.IsPermanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter

	return apiErr
}

// GetRetryDelay calculates the delay before retrying based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	shift := uint(min(max(attempt, 0), 10))

	if IsQuotaError(err) {
		return min(time.Hour*time.Duration(1<<shift), 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := min(60*time.Second*time.Duration(1<<shift), 15*time.Minute)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return min(5*time.Second*time.Duration(1<<shift), 5*time.Minute)
}
