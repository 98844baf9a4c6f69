//go:build !unix

package storage

import "os"

// No cross-process locking off unix; the in-process store lock still applies.
func flock(f *os.File) error   { return nil }
func funlock(f *os.File) error { return nil }
