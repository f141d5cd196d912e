package db

import (
	"fmt"
	"strconv"
	"strings"
)

// ConversationID derives the canonical conversation key for an unordered
// user pair: the smaller id first, joined with an underscore. Symmetric
// (ConversationID(a,b) == ConversationID(b,a)), distinct for distinct
// pairs, and computable without touching the store.
func ConversationID(a, b uint64) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// PairFromConversationID is the inverse of ConversationID. It rejects
// keys that are not a well-formed ordered pair of distinct ids.
func PairFromConversationID(id string) (uint64, uint64, error) {
	lo, hi, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, fmt.Errorf("malformed conversation id %q", id)
	}
	a, err := strconv.ParseUint(lo, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed conversation id %q", id)
	}
	b, err := strconv.ParseUint(hi, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed conversation id %q", id)
	}
	if a == 0 || a >= b {
		return 0, 0, fmt.Errorf("malformed conversation id %q", id)
	}
	return a, b, nil
}
