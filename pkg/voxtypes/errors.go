package voxtypes

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when a provider id is not in the catalog.
// It is never recovered by local fallback so a misconfiguration stays visible.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// ErrNoRemote is returned by the remote step when the configuration is local or has no API key.
var ErrNoRemote = errors.New("no remote provider configured")

// RemoteRequestFailedError reports a transport failure or a non-success HTTP status.
type RemoteRequestFailedError struct {
	Provider   ProviderID
	StatusCode int    // zero when the request never produced a response
	Body       string // truncated response body, if any
	Err        error
}

func (e *RemoteRequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RemoteRequestFailedError) Unwrap() error {
	return e.Err
}

// RemoteResponseMalformedError reports a response body that does not match the provider's shape.
type RemoteResponseMalformedError struct {
	Provider ProviderID
	Path     string
	Err      error
}

func (e *RemoteResponseMalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response malformed at %q: %v", e.Provider, e.Path, e.Err)
	}
	return fmt.Sprintf("%s response malformed at %q", e.Provider, e.Path)
}

func (e *RemoteResponseMalformedError) Unwrap() error {
	return e.Err
}
