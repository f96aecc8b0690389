package artifacts

import "errors"

var (
	ErrNotFound = errors.New("artifact not found")
	// ErrIntegrity means the stored bytes no longer match the recorded
	// checksum; the artifact must not be served.
	ErrIntegrity = errors.New("artifact checksum mismatch")
)
