package source

import "errors"

// Sentinel kinds for source errors.
var (
	// ErrUnavailable is returned by a Mock configured to fail.
	ErrUnavailable = errors.New("data source unavailable")
	// ErrUpstreamStatus marks a non-2xx answer from the datastore.
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrDecode marks a response body that is not a FHIR bundle.
	ErrDecode = errors.New("decode fhir bundle")
	// ErrSign marks a request that could not be signed.
	ErrSign = errors.New("sign request")
)
