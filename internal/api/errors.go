package api

import (
	"errors"
	"fmt"
)

// Machine error codes carried in the backend error envelope.
const (
	CodeInvalidPriceRange      = "InvalidPriceRange"
	CodeIncompleteGeoParams    = "IncompleteGeoParams"
	CodeInvalidCategory        = "InvalidCategory"
	CodeInvalidSortField       = "InvalidSortField"
	CodeInvalidSortOrder       = "InvalidSortOrder"
	CodeItemNotFound           = "ItemNotFound"
	CodeAuthenticationRequired = "AuthenticationRequired"
	CodePermissionDenied       = "PermissionDenied"
)

// TransportError is a non-2xx response from the backend. Status is
// always set; Code and Message are filled when the body carried the
// standard error envelope.
type TransportError struct {
	Status  int
	Code    string
	Message string
}

func (e *TransportError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is a TransportError with the given HTTP
// status anywhere in its chain.
func IsStatus(err error, status int) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Status == status
}
