//go:build !openbsd

package east

// Pledge is only supported on OpenBSD.
func Pledge() error { return nil }

// Unveil is only supported on OpenBSD.
func Unveil(paths map[string]string) error { return nil }
