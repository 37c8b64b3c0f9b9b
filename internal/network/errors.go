// ABOUTME: Sentinel errors for the wireless control plane
// ABOUTME: Association failures and request-line rejections
package network

import "errors"

var (
	// ErrRetriesExhausted ends one full association sequence
	ErrRetriesExhausted = errors.New("max retries reached, association failed")

	// ErrMissingCredentials means no SSID is configured, so association
	// can never succeed
	ErrMissingCredentials = errors.New("wifi credentials not configured")

	// ErrMalformedRequest means the request line could not be parsed
	ErrMalformedRequest = errors.New("invalid request format")

	// ErrMethodNotAllowed is returned for anything but GET
	ErrMethodNotAllowed = errors.New("only GET requests are supported")
)
