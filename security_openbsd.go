package east

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Pledge to the kernel the required syscalls on OpenBSD. Scaffolding writes
// files and sqlite needs file locks, so write and lock promises are included.
func Pledge() error {
	const promises = "stdio rpath wpath cpath flock fattr inet dns tty"
	if err := unix.Pledge(promises, ""); err != nil {
		return err
	}
	return nil
}

// Unveil only the given paths, mapped to their permissions (e.g. "r" for TLS
// certs, "rwc" for the migrations directory), to the program.
func Unveil(paths map[string]string) error {
	for p, perm := range paths {
		if p == "" {
			continue
		}
		if err := unix.Unveil(p, perm); err != nil {
			return errors.Wrapf(err, "unveil %s", p)
		}
	}
	if err := unix.UnveilBlock(); err != nil {
		return errors.Wrap(err, "unveil block")
	}
	return nil
}
