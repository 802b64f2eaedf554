package common

import "time"

const (
	// AuthorizationHeaderName carries the bearer token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the only accepted Authorization scheme.
	BearerScheme = "Bearer"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"

	// ActivationCodeLength is the number of digits in an activation code.
	ActivationCodeLength = 6

	// DefaultTokenValidityDuration is used for both session and temp tokens (~6 months).
	DefaultTokenValidityDuration = 180 * 24 * time.Hour
)
