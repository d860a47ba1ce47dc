package validation

import (
	"net/mail"
	"strings"
)

const maxDisplayNameLen = 80

// IdentifyRequest mirrors the fields needed for identify validation.
type IdentifyRequest struct {
	Email       string
	DisplayName string
}

// ValidateIdentifyRequest validates the capture form's input. The identity
// core itself does not validate email syntax; it happens here, at the form
// boundary.
func ValidateIdentifyRequest(req IdentifyRequest) []FieldError {
	var errs []FieldError

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	}

	if len(strings.TrimSpace(req.DisplayName)) > maxDisplayNameLen {
		errs = append(errs, FieldError{Field: "displayName", Message: "displayName must be at most 80 characters"})
	}

	return errs
}
