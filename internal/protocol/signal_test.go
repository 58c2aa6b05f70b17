package protocol

import (
	"strings"
	"testing"
)

func TestValidateSignal(t *testing.T) {
	if err := ValidateSignal(DefaultSignal); err != nil {
		t.Errorf("default signal rejected: %v", err)
	}

	if err := ValidateSignal(""); err == nil {
		t.Error("empty payload accepted")
	}

	if err := ValidateSignal(strings.Repeat("a", MaxChunkSize)); err != nil {
		t.Errorf("max-size payload rejected: %v", err)
	}

	if err := ValidateSignal(strings.Repeat("a", MaxChunkSize+1)); err == nil {
		t.Error("oversize payload accepted")
	}

	if err := ValidateSignal(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("non-UTF-8 payload accepted")
	}
}

func TestMatcherExact(t *testing.T) {
	m := NewMatcher("sleep_display")

	matched, decodable := m.Match([]byte("sleep_display"))
	if !decodable || !matched {
		t.Errorf("exact payload: matched=%v decodable=%v", matched, decodable)
	}

	for _, chunk := range []string{"sleep_displayX", "Sleep_Display", "sleep_displa", " sleep_display", "sleep_display\n"} {
		matched, decodable := m.Match([]byte(chunk))
		if !decodable {
			t.Errorf("%q: not decodable", chunk)
		}
		if matched {
			t.Errorf("%q: matched", chunk)
		}
	}
}

func TestMatcherInvalidUTF8(t *testing.T) {
	m := NewMatcher("sleep_display")

	matched, decodable := m.Match([]byte{0xc3, 0x28})
	if decodable {
		t.Error("invalid UTF-8 reported as decodable")
	}
	if matched {
		t.Error("invalid UTF-8 matched")
	}
}

// Partial chunks never match; reassembly across receives is not performed.
func TestMatcherNoReassembly(t *testing.T) {
	m := NewMatcher("sleep_display")

	for _, chunk := range []string{"sleep_disp", "lay"} {
		if matched, _ := m.Match([]byte(chunk)); matched {
			t.Errorf("partial chunk %q matched", chunk)
		}
	}
}
