package dict

import "github.com/zeebo/xxh3"

// Key is a binary-safe byte-string key. Use it for payloads produced by
// a byte buffer, converting with Key(buf). It hashes with XXH3.
type Key string

// Hash implements Hashable.
func (k Key) Hash() uint64 {
	return xxh3.HashString(string(k))
}

// Bytes returns a copy of the key contents.
func (k Key) Bytes() []byte {
	return []byte(k)
}
