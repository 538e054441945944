package storeconnect

import (
	"errors"
	"fmt"
)

// Sentinel errors matched through errors.Is on the typed errors below.
var (
	ErrSigningConfig = errors.New("storeconnect: signing configuration")
	ErrRequestFailed = errors.New("storeconnect: request failed")
	ErrDecompression = errors.New("storeconnect: decompression")
)

// SigningConfigError reports a private key that cannot be used for ES256 signing.
type SigningConfigError struct {
	Err error
}

func (e *SigningConfigError) Error() string {
	return fmt.Sprintf("signing configuration: %v", e.Err)
}

func (e *SigningConfigError) Unwrap() error { return e.Err }

func (e *SigningConfigError) Is(target error) bool { return target == ErrSigningConfig }

// RequestFailedError is returned for any response other than 200 OK.
// Body holds the raw response for diagnostics.
type RequestFailedError struct {
	StatusCode int
	URL        string
	Body       []byte
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("expected status code 200, but got %d. URL: %s", e.StatusCode, e.URL)
}

func (e *RequestFailedError) Is(target error) bool { return target == ErrRequestFailed }

// DecompressionError reports a body that was expected to be gzip but is not.
type DecompressionError struct {
	Err error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("decompress report: %v", e.Err)
}

func (e *DecompressionError) Unwrap() error { return e.Err }

func (e *DecompressionError) Is(target error) bool { return target == ErrDecompression }
