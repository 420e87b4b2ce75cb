package retry

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

var throttleCodes = map[string]struct{}{
	"TooManyRequestsException":               {},
	"ThrottlingException":                    {},
	"Throttling":                             {},
	"ThrottledException":                     {},
	"RequestLimitExceeded":                   {},
	"RequestThrottled":                       {},
	"RequestThrottledException":              {},
	"SlowDown":                               {},
	"ProvisionedThroughputExceededException": {},
}

var accessDeniedCodes = map[string]struct{}{
	"AccessDeniedException": {},
	"AccessDenied":          {},
	"UnauthorizedOperation": {},
}

// ErrorCode returns the api error code carried by err, or "" when err is not an api error.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsThrottle reports whether err is a throttling error from an aws api.
func IsThrottle(err error) bool {
	_, ok := throttleCodes[ErrorCode(err)]
	return ok
}

// IsAccessDenied reports whether err is a permissions error from an aws api.
func IsAccessDenied(err error) bool {
	_, ok := accessDeniedCodes[ErrorCode(err)]
	return ok
}

// HasCode reports whether err is an api error with the given code.
func HasCode(err error, code string) bool {
	return code != "" && ErrorCode(err) == code
}

// RetryUnlessDenied retries every error except permission errors and context cancellation.
func RetryUnlessDenied(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsAccessDenied(err)
}
