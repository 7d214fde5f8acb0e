package dict

import (
	"hash/maphash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// hashPrime is the 64-bit Golden Ratio mixing constant.
const hashPrime = 0x9E3779B185EBCA87

// HashFunc hashes a key with the per-Dict seed. Keys that compare equal
// must hash equally for the same seed. Only the low bits select a bucket,
// so the function should spread entropy into them.
type HashFunc[K comparable] func(key K, seed uint64) uint64

// Hashable is implemented by key types that carry their own hash.
// The Dict mixes its seed into the returned value.
type Hashable interface {
	Hash() uint64
}

// HashString hashes s with xxHash64, mixing in seed.
func HashString(s string, seed uint64) uint64 {
	return mix(xxhash.Sum64String(s) ^ seed)
}

// HashInteger hashes any integer by multiplicative mixing. Sequential
// keys stay evenly spread across the low bits.
func HashInteger[T constraints.Integer](v T, seed uint64) uint64 {
	return mix(uint64(v) ^ seed)
}

// mix folds the high half of a golden ratio product into the low bits.
func mix(h uint64) uint64 {
	h *= hashPrime
	return h ^ (h >> 32)
}

// defaultHasher selects the hasher used when NewWithHasher is given nil.
// Hashable keys use their own hash; strings use xxHash; integers are mixed
// inline; anything else goes through the runtime's comparable hasher.
func defaultHasher[K comparable]() HashFunc[K] {
	var zero K
	if _, ok := any(zero).(Hashable); ok {
		return func(key K, seed uint64) uint64 {
			return mix(any(key).(Hashable).Hash() ^ seed)
		}
	}
	switch any(zero).(type) {
	case string:
		return func(key K, seed uint64) uint64 {
			return HashString(any(key).(string), seed)
		}
	case int:
		return integerHasher[K, int]()
	case int8:
		return integerHasher[K, int8]()
	case int16:
		return integerHasher[K, int16]()
	case int32:
		return integerHasher[K, int32]()
	case int64:
		return integerHasher[K, int64]()
	case uint:
		return integerHasher[K, uint]()
	case uint8:
		return integerHasher[K, uint8]()
	case uint16:
		return integerHasher[K, uint16]()
	case uint32:
		return integerHasher[K, uint32]()
	case uint64:
		return integerHasher[K, uint64]()
	case uintptr:
		return integerHasher[K, uintptr]()
	}
	return comparableHasher[K]()
}

func integerHasher[K comparable, T constraints.Integer]() HashFunc[K] {
	return func(key K, seed uint64) uint64 {
		return HashInteger(any(key).(T), seed)
	}
}

// comparableHasher delegates to the runtime hasher for arbitrary
// comparable keys such as structs and arrays. The maphash seed is fixed
// per Dict type; the Dict seed is mixed on top.
func comparableHasher[K comparable]() HashFunc[K] {
	ms := maphash.MakeSeed()
	return func(key K, seed uint64) uint64 {
		return mix(maphash.Comparable(ms, key) ^ seed)
	}
}
