package rag

import (
	"errors"
	"strings"
)

var (
	// ErrStoreUnavailable means a reset deleted the collection but could not
	// recreate it. Every operation fails fast with this error until a
	// subsequent Reset succeeds.
	ErrStoreUnavailable = errors.New("vector store unavailable, reset required")

	// ErrQuotaExceeded marks a remote model call rejected for quota or rate
	// limiting. The HTTP layer maps it to 429 so clients can back off.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNoDocuments means the store returned no result set at all for a
	// query, as opposed to an empty one.
	ErrNoDocuments = errors.New("no documents found")
)

// IsQuota reports whether err is a quota failure, either tagged explicitly
// with ErrQuotaExceeded or carrying a 429/quota signal in its message.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}
