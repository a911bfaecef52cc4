package vm

import (
	"strings"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// String: immutable UTF-8 text
// ---------------------------------------------------------------------------

// String is an immutable UTF-8 string. Strings used as property keys are
// interned per VM so key comparison is pointer identity.
type String struct {
	refHeader
	s        string
	length   int
	hash     uint32
	hashed   bool
	interned bool
}

func newString(s string) *String {
	return &String{s: s, length: -1}
}

func (s *String) releaseChildren() {}

// Value returns the Go string.
func (s *String) Value() string { return s.s }

// Len returns the length in code points.
func (s *String) Len() int {
	if s.length < 0 {
		s.length = utf8.RuneCountInString(s.s)
	}
	return s.length
}

// IsASCII reports whether code-point indexing can use byte offsets.
func (s *String) IsASCII() bool { return s.Len() == len(s.s) }

// Hash returns the FNV-1a hash of the string's bytes.
func (s *String) Hash() uint32 {
	if !s.hashed {
		s.hash = fnv1a(fnvOffset, []byte(s.s))
		s.hashed = true
	}
	return s.hash
}

// Rune returns the code point at index i; ok is false when out of range.
func (s *String) Rune(i int) (rune, bool) {
	if i < 0 || i >= s.Len() {
		return 0, false
	}
	if s.IsASCII() {
		return rune(s.s[i]), true
	}
	for _, r := range s.s {
		if i == 0 {
			return r, true
		}
		i--
	}
	return 0, false
}

// Slice returns the code points in [start, end).
func (s *String) Slice(start, end int) string {
	if s.IsASCII() {
		return s.s[start:end]
	}
	runes := []rune(s.s)
	return string(runes[start:end])
}

// FromString wraps a Go string in an untracked string value.
func FromString(s string) Value {
	return fromObject(KindString, newString(s))
}

// ---------------------------------------------------------------------------
// Intern table
// ---------------------------------------------------------------------------

// InternTable canonicalizes strings used as property keys and names.
// Interned strings are owned by the table for the life of the VM.
type InternTable struct {
	strings map[string]*String
}

// NewInternTable creates an empty intern table.
func NewInternTable() *InternTable {
	return &InternTable{strings: make(map[string]*String, 256)}
}

// Intern returns the canonical String for s.
func (t *InternTable) Intern(s string) *String {
	if str, ok := t.strings[s]; ok {
		return str
	}
	str := newString(s)
	str.interned = true
	str.refs = 1
	t.strings[s] = str
	return str
}

// Lookup returns the canonical String for s without creating it.
func (t *InternTable) Lookup(s string) (*String, bool) {
	str, ok := t.strings[s]
	return str, ok
}

// Len returns the number of interned strings.
func (t *InternTable) Len() int { return len(t.strings) }

// ---------------------------------------------------------------------------
// StringBuilder: append-only text accumulation
// ---------------------------------------------------------------------------

// StringBuilder accumulates text and converts to a String exactly once.
type StringBuilder struct {
	refHeader
	sb        strings.Builder
	converted bool
}

func (b *StringBuilder) releaseChildren() {}

// Converted reports whether toString has already consumed the builder.
func (b *StringBuilder) Converted() bool { return b.converted }

// Len returns the number of bytes accumulated.
func (b *StringBuilder) Len() int { return b.sb.Len() }

// ---------------------------------------------------------------------------
// FNV-1a hashing
// ---------------------------------------------------------------------------

const (
	fnvOffset uint32 = 2166136261
	fnvPrime  uint32 = 16777619
)

func fnv1a(h uint32, data []byte) uint32 {
	for _, b := range data {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return h
}

func fnvMix(h, v uint32) uint32 {
	for i := 0; i < 4; i++ {
		h ^= v & 0xFF
		h *= fnvPrime
		v >>= 8
	}
	return h
}
