// Package checksum computes best-effort content digests for local files.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// Unknown is the sentinel digest used when a file cannot be hashed.
// A digest is transfer metadata, not a correctness gate, so hashing
// failures never fail the transfer itself.
const Unknown = "unknown"

// File returns the SHA256 hex digest of the file at path, or Unknown if
// the file cannot be read.
func File(path string) string {
	digest, err := fileSHA256(path)
	if err != nil {
		return Unknown
	}
	return digest
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
