package awsapi

import (
	"errors"

	smithy "github.com/aws/smithy-go"
)

// accessDeniedCodes are the error codes AWS services return when the caller
// lacks permission. The set varies per service, hence the aliases.
var accessDeniedCodes = map[string]struct{}{
	"AccessDenied":          {},
	"AccessDeniedException": {},
	"UnauthorizedOperation": {},
}

// IsAccessDenied reports whether err is a permission failure.
func IsAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := accessDeniedCodes[apiErr.ErrorCode()]
	return ok
}

// ErrorCode extracts the provider error code, or "" for non-API errors.
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
