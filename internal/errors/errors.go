package errors

import (
	"errors"
	"fmt"
)

// Common error types for the console client
var (
	// Session errors
	ErrNoAccessToken    = errors.New("no access token")
	ErrStaleProfile     = errors.New("profile response superseded")
	ErrInvalidPersisted = errors.New("invalid persisted session")

	// Storage errors
	ErrNotFound           = errors.New("not found")
	ErrUnknownStorageKind = errors.New("unknown storage kind")

	// Navigation errors
	ErrRedirectLoop = errors.New("navigation redirect loop")

	// General errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
