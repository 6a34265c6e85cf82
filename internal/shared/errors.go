package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAccessForbidden  = fmt.Errorf("access forbidden")

	// Upstream API errors
	//
	// Each external failure is logged with endpoint, params, and status,
	// then wrapped into exactly one of these before crossing a package boundary.
	ErrUpstreamAuth      = fmt.Errorf("upstream credential exchange failed")
	ErrRateLimited       = fmt.Errorf("upstream rate limit exceeded")
	ErrQuotaExhausted    = fmt.Errorf("all API keys exhausted quota")
	ErrAPIRequest        = fmt.Errorf("API request failed")
	ErrPartialEnrichment = fmt.Errorf("song enrichment failed")

	// Storage errors
	ErrNotFound       = fmt.Errorf("resource not found")
	ErrDuplicateEmail = fmt.Errorf("email already in use")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
