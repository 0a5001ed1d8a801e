// Package hashutil computes SHA-256 digests used to detect unchanged files.
package hashutil

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
)

// Digest is a raw SHA-256 sum.
type Digest [sha256.Size]byte

// Sum extracts the digest accumulated in h, which must be a SHA-256 hash.
func Sum(h hash.Hash) Digest {
	var d Digest

	copy(d[:], h.Sum(nil))

	return d
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (Digest, int64, error) {
	h := sha256.New()

	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, err
	}

	return Sum(h), n, nil
}

// File hashes the file at path.
func File(path string) (Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer func() { _ = f.Close() }()

	d, _, err := Reader(f)
	if err != nil {
		return Digest{}, fmt.Errorf("hash %s: %w", path, err)
	}

	return d, nil
}
