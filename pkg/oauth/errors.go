package oauth

import "errors"

var (
	// ErrMissingClientID is returned when a provider has no consumer key.
	ErrMissingClientID = errors.New("oauth: missing consumer key")

	// ErrMissingClientSecret is returned when a provider has no consumer secret.
	ErrMissingClientSecret = errors.New("oauth: missing consumer secret")

	// ErrMissingEndpoint is returned when a custom provider lacks an authorize, token or profile URL.
	ErrMissingEndpoint = errors.New("oauth: missing provider endpoint")

	// ErrDuplicateProvider is returned when two providers share an id.
	ErrDuplicateProvider = errors.New("oauth: duplicate provider id")

	// ErrMissingUserID is returned when a provider response carries no user identifier.
	ErrMissingUserID = errors.New("oauth: provider returned no user id")

	// ErrNilResponse is returned when the OAuth provider returns a nil response.
	ErrNilResponse = errors.New("oauth: nil response from provider")

	// ErrFetchFailed is returned when fetching data from the OAuth provider fails.
	ErrFetchFailed = errors.New("oauth: failed to fetch from provider")

	// ErrRequestFailed is returned when the OAuth provider returns a non-OK status.
	ErrRequestFailed = errors.New("oauth: request returned non-OK status")

	// ErrDecodeFailed is returned when decoding the OAuth provider response fails.
	ErrDecodeFailed = errors.New("oauth: failed to decode response")

	// ErrInvalidConfig is returned when provider configuration cannot be loaded.
	ErrInvalidConfig = errors.New("oauth: invalid provider configuration")
)
