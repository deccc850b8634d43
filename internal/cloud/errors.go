package cloud

import (
	"errors"
	"fmt"
)

// ErrAuthConfig marks an incomplete credential setup: the identity has no
// stored record, or the record is missing the identity-provider URL, the
// authorization header or the partner id. Callers should prompt for setup
// rather than retry.
var ErrAuthConfig = errors.New("cloud: credential setup incomplete")

// OAuthError is a failed token issuance: provider rejection, malformed
// provider response, network failure or timeout. Callers should suggest a
// retry or a credential re-check.
type OAuthError struct {
	Reason  string
	Status  int
	Timeout bool
	Err     error
}

func (e *OAuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cloud: oauth token request failed (status %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("cloud: oauth token request failed: %s", e.Reason)
}

func (e *OAuthError) Unwrap() error { return e.Err }

// ErrorKind classifies API gateway failures.
type ErrorKind string

const (
	// KindAuth is a 401/403 from the API; the cached token has already
	// been invalidated when this error is returned.
	KindAuth ErrorKind = "auth"

	// KindClient is any other 4xx.
	KindClient ErrorKind = "client"

	// KindServer is a 5xx.
	KindServer ErrorKind = "server"

	// KindTimeout is an exceeded request deadline.
	KindTimeout ErrorKind = "timeout"

	// KindNetwork is a transport failure other than a timeout.
	KindNetwork ErrorKind = "network"

	// KindDecode is a 2xx with a body that is not valid JSON.
	KindDecode ErrorKind = "decode"
)

// APIError is a typed API gateway failure.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Path    string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("cloud: %s error on %s (status %d): %s", e.Kind, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("cloud: %s error on %s: %s", e.Kind, e.Path, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
