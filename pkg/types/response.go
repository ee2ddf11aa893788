// Package types holds the wire envelopes every storefront API response is
// wrapped in.
package types

// SuccessEnvelope wraps a successful response body under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error shape: a stable storefront error code, a
// client-safe message, and optional structured details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under "error".
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
