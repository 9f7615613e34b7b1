package mapping

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStruct is returned when a mapper is requested for a non-struct type
	ErrNotStruct = errors.New("mapped type must be a struct")

	// ErrUnknownMemberMapper is returned when a member names a mapper type that is not registered
	ErrUnknownMemberMapper = errors.New("member mapper not registered")

	// ErrConversion is returned when a storage value cannot be assigned to a member
	ErrConversion = errors.New("value conversion failed")
)

// MemberError locates a conversion failure on one member
type MemberError struct {
	Type   string
	Member string
	Err    error
}

// Error implements the error interface
func (e *MemberError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Member, e.Err)
}

// Unwrap returns the underlying error
func (e *MemberError) Unwrap() error {
	return e.Err
}

// IsConversion returns true if err is a value conversion failure
func IsConversion(err error) bool {
	return errors.Is(err, ErrConversion)
}
