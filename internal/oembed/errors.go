package oembed

import (
	"fmt"

	"oembedfixes/internal/observability"
)

// ErrorKind classifies why a refresh did not replace the providers file.
type ErrorKind string

const (
	// KindTransport covers network failures and non-200 responses.
	KindTransport ErrorKind = "transport"
	// KindPayload covers bodies that are oversized, unparseable or empty.
	KindPayload ErrorKind = "payload"
	// KindStorage covers cache invalidation and file write failures.
	KindStorage ErrorKind = "storage"
)

// RefreshError is returned by Refresh when the providers file was left untouched
// (transport, payload) or could not be replaced (storage).
type RefreshError struct {
	Kind ErrorKind
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

func transportError(err error) *RefreshError {
	return &RefreshError{Kind: KindTransport, Err: err}
}

func payloadError(err error) *RefreshError {
	return &RefreshError{Kind: KindPayload, Err: err}
}

func storageError(err error) *RefreshError {
	return &RefreshError{Kind: KindStorage, Err: err}
}

// metricLabel maps a refresh error to its ProviderRefreshes label.
func metricLabel(err *RefreshError) string {
	if err == nil {
		return observability.RefreshOK
	}
	switch err.Kind {
	case KindTransport:
		return observability.RefreshTransportError
	case KindPayload:
		return observability.RefreshPayloadError
	default:
		return observability.RefreshStorageError
	}
}
