package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed random identifier such as "ord-3f2a...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// Short returns the first n hex characters of a fresh UUID, upper-cased.
// Used for human-facing references like order numbers.
func Short(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n < 1 || n > len(raw) {
		n = len(raw)
	}
	return strings.ToUpper(raw[:n])
}
