package auth

import "errors"

// ForbiddenError indicates a policy violation: self-protection, peer-role
// protection, organization-scope violation, or a disallowed role assignment.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

// NewForbidden creates a ForbiddenError with the given reason.
func NewForbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// IsForbidden checks if an error is a forbidden error.
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// NotFoundError indicates an absent target, role, or organization. At
// mutating-action boundaries the policy layer converts this to Forbidden so
// that unauthorized actors cannot probe for account existence; read-only
// lookups surface it as-is.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NewNotFound creates a NotFoundError for the named resource.
func NewNotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// BadRequestError indicates ambiguous or missing required input, such as an
// unresolvable organization scope or an empty update payload.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}

// NewBadRequest creates a BadRequestError with the given reason.
func NewBadRequest(reason string) error {
	return &BadRequestError{Reason: reason}
}

// IsBadRequest checks if an error is a bad request error.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}
