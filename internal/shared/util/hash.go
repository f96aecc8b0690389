package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// HashTenantKey returns a filesystem-safe identifier for a tenant ID.
func HashTenantKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ChecksumSHA256 returns the hex SHA-256 digest of data.
func ChecksumSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumReader computes the hex SHA-256 digest of everything in r.
func ChecksumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
