package storage

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"

	"github.com/nikbrunner/marks/internal/model"
)

// zstdMagic prefixes every zstd frame; used to sniff compressed snapshots.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Both are safe for concurrent use and expensive to build.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodeSnapshot serializes a store as indented JSON, zstd-compressed when
// compress is set.
func encodeSnapshot(store *model.Store, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if compress {
		return zstdEncoder.EncodeAll(data, nil), nil
	}
	return data, nil
}

// decodeSnapshot accepts plain or zstd-compressed JSON.
func decodeSnapshot(data []byte) (*model.Store, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		plain, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		data = plain
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	// Ensure slices are not nil
	if store.Folders == nil {
		store.Folders = []model.Folder{}
	}
	if store.Bookmarks == nil {
		store.Bookmarks = []model.Bookmark{}
	}
	return &store, nil
}

// Fingerprint returns a stable hash of the store contents. Two snapshots
// with equal records in equal order share a fingerprint.
func Fingerprint(store *model.Store) (uint64, error) {
	data, err := json.Marshal(store)
	if err != nil {
		return 0, fmt.Errorf("fingerprint snapshot: %w", err)
	}
	return xxh3.Hash(data), nil
}
