//go:build !tinygo && !cgo

package hal

import "fmt"

// RunWindow is unavailable without cgo. It returns an error wrapping
// ErrNotImplemented before newApp is called, so the caller can fall back to
// RunHeadless.
func RunWindow(newApp func(HAL) func() error) error {
	return fmt.Errorf("window mode requires cgo (CGO_ENABLED=1): %w", ErrNotImplemented)
}
