// Package protocol defines the wire semantics of the drowse sleep signal.
//
// The signal is a short UTF-8 payload carried over a bare TCP stream with
// no framing, no length prefix, and no handshake. Identity is exact byte
// equality against the configured payload.
package protocol

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxChunkSize is the largest amount of payload consumed from a
	// connection in a single receive. Payloads longer than this can
	// never match.
	MaxChunkSize = 1024

	// DefaultSignal is the payload sent when a watched display turns on.
	DefaultSignal = "sleep_display"
)

// ValidateSignal checks that a configured payload can travel as a single
// receive chunk.
func ValidateSignal(s string) error {
	if s == "" {
		return fmt.Errorf("signal payload must not be empty")
	}
	if len(s) > MaxChunkSize {
		return fmt.Errorf("signal payload exceeds %d bytes: %d", MaxChunkSize, len(s))
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("signal payload must be valid UTF-8")
	}
	return nil
}

// Matcher compares received chunks against the expected payload.
//
// Matching is strictly per chunk: each receive is decoded and compared on
// its own, and bytes are never reassembled across receives. A payload
// delivered inside one receive matches; the same bytes split across two
// receives do not.
type Matcher struct {
	expected string
}

// NewMatcher creates a matcher for the given payload. The payload must
// have passed ValidateSignal.
func NewMatcher(expected string) *Matcher {
	return &Matcher{expected: expected}
}

// Expected returns the payload this matcher accepts.
func (m *Matcher) Expected() string {
	return m.expected
}

// Match classifies one received chunk. decodable is false when the chunk
// is not valid UTF-8, in which case it is ignored without comparison.
func (m *Matcher) Match(chunk []byte) (matched, decodable bool) {
	if !utf8.Valid(chunk) {
		return false, false
	}
	return string(chunk) == m.expected, true
}
