//go:build unix

package storage

import (
	"os"
	"syscall"
)

func flock(f *os.File) error {
	// Blocking, no LOCK_NB
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func funlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
