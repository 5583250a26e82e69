package helper

import "fmt"

// NewError wraps err with a short context describing the failed operation.
// The wrapped error stays available to errors.Is and errors.As.
func NewError(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("error in %v: %w", context, err)
}
