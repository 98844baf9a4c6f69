package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// fileLock serializes writers across processes through flock(2) on a
// sidecar "<path>.lock" file next to the data file.
type fileLock struct {
	path string
}

func newFileLock(dataPath string) fileLock {
	return fileLock{path: dataPath + ".lock"}
}

// Lock blocks until the exclusive lock is held. ctx is checked before the
// blocking call only; flock itself cannot be interrupted.
func (l fileLock) Lock(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := flock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", l.path, err)
	}
	return func() error {
		uerr := funlock(f)
		cerr := f.Close()
		if uerr != nil {
			return uerr
		}
		return cerr
	}, nil
}
