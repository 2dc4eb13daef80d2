package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuery          = errors.New("invalid query")
	ErrSearchProvider        = errors.New("search provider failure")
	ErrCompletionProvider    = errors.New("completion provider failure")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrTemporary             = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// WrapErrorMessage is WrapError for failures that carry no underlying error.
func WrapErrorMessage(kind error, operation, message string) error {
	return fmt.Errorf("%s: %w: %s", operation, kind, message)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
