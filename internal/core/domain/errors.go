package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOutfitNotFound       = errors.New("outfit not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrBackendNotConfigured = errors.New("backend not configured")
	ErrUpstream             = errors.New("upstream failure")
	ErrParse                = errors.New("unparseable model output")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
