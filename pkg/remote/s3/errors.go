package s3

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/safedrive/safedrive-engine/pkg/secerr"
)

// classify maps a raw AWS SDK error into the engine's error taxonomy so
// pkg/upload and pkg/session never need to know this backend is S3.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return secerr.New(secerr.KindBlockMissing, op, err)
	}
	if isThrottled(err) {
		return secerr.New(secerr.KindServiceUnavailable, op, err)
	}
	if isAuthError(err) {
		return secerr.New(secerr.KindAuthentication, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return secerr.New(secerr.KindCancelled, op, err)
	}
	if isRetryableNetworkError(err) {
		return secerr.New(secerr.KindNetworkFailure, op, err)
	}
	return secerr.New(secerr.KindRequestFailure, op, err)
}

func isRetryableNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout")
}

func isThrottled(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
		"InternalError", "ServiceUnavailable", "ServiceException", "InternalServiceException":
		return true
	}
	return false
}

func isAuthError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return true
	}
	return false
}

func isNotFoundError(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
