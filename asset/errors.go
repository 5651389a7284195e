/*
errors.go - Error taxonomy for asset records

PURPOSE:
  Asset-level rejections share one place so that every layer (engine,
  reports, API) classifies them the same way.

ERROR CATEGORIES:
  1. Invalid asset - a record violates a data-model invariant
  2. Unsupported method - the method tag is not a depreciation method

  Both are rejections of one specific asset, never process-level failures,
  and are never retried.

USAGE:
  if errors.Is(err, asset.ErrInvalidAsset) { ... }

  var inv *asset.InvalidAssetError
  if errors.As(err, &inv) {
      fmt.Println(inv.Field)
  }

SEE ALSO:
  - depreciation/errors.go: ComputationError (engine defects)
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package asset

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAsset is returned when a record violates a data-model invariant.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrUnsupportedMethod is returned when the depreciation method is not recognized.
	ErrUnsupportedMethod = errors.New("unsupported depreciation method")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidAssetError names the asset and the field that broke an invariant.
type InvalidAssetError struct {
	Code   string
	Field  string
	Reason string
}

func (e *InvalidAssetError) Error() string {
	return fmt.Sprintf("invalid asset %q: %s %s", e.Code, e.Field, e.Reason)
}

func (e *InvalidAssetError) Unwrap() error {
	return ErrInvalidAsset
}

// UnsupportedMethodError carries the unrecognized method tag.
type UnsupportedMethodError struct {
	Code   string
	Method Method
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("asset %q: unsupported depreciation method %q", e.Code, string(e.Method))
}

func (e *UnsupportedMethodError) Unwrap() error {
	return ErrUnsupportedMethod
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the asset data itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAsset) || errors.Is(err, ErrUnsupportedMethod)
}

func invalid(code, field, reason string) error {
	return &InvalidAssetError{Code: code, Field: field, Reason: reason}
}
