package dict

import (
	"math/bits"

	"github.com/pkg/errors"
)

// entry is a chain node. It is owned by exactly one bucket chain; moving
// it between tables is a single relink, never a copy.
type entry[K comparable, V any] struct {
	key   K
	value V
	next  *entry[K, V]
	// removed is set once the entry leaves the dict; its next pointer is
	// left intact so a traversal standing on it can still move on.
	removed bool
}

// bucketTable is a power-of-2 array of chain heads and the number of
// entries reachable from them.
type bucketTable[K comparable, V any] struct {
	buckets []*entry[K, V]
	size    int
}

func newBucketTable[K comparable, V any](tableLen int) *bucketTable[K, V] {
	if tableLen <= 0 || tableLen&(tableLen-1) != 0 {
		panic(errors.Errorf("dict: table length %d is not a power of 2", tableLen))
	}
	return &bucketTable[K, V]{
		buckets: make([]*entry[K, V], tableLen),
	}
}

//go:nosplit
func (t *bucketTable[K, V]) capacity() int {
	return len(t.buckets)
}

//go:nosplit
func (t *bucketTable[K, V]) mask() uint64 {
	return uint64(len(t.buckets) - 1)
}

//go:nosplit
func (t *bucketTable[K, V]) bucket(hash uint64) *entry[K, V] {
	return t.buckets[hash&t.mask()]
}

// find walks the chain for hash and returns the matching entry, or nil.
func (t *bucketTable[K, V]) find(hash uint64, key K) *entry[K, V] {
	for e := t.bucket(hash); e != nil; e = e.next {
		if e.key == key {
			return e
		}
	}
	return nil
}

// pushFront links e at the head of the bucket for hash.
func (t *bucketTable[K, V]) pushFront(hash uint64, e *entry[K, V]) {
	idx := hash & t.mask()
	e.next = t.buckets[idx]
	t.buckets[idx] = e
	t.size++
}

// unlink removes the first entry matching key from the bucket for hash.
// It rescans from the bucket head because chains are singly linked. The
// returned entry keeps its next pointer.
func (t *bucketTable[K, V]) unlink(hash uint64, key K) *entry[K, V] {
	idx := hash & t.mask()
	var prev *entry[K, V]
	for e := t.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			if prev != nil {
				prev.next = e.next
			} else {
				t.buckets[idx] = e.next
			}
			t.size--
			return e
		}
		prev = e
	}
	return nil
}

// chainLen counts the entries in bucket idx.
func (t *bucketTable[K, V]) chainLen(idx int) int {
	n := 0
	for e := t.buckets[idx]; e != nil; e = e.next {
		n++
	}
	return n
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// calcTableLen returns the bucket count for a table that must hold n
// entries: the smallest power of 2 >= n, never below minLen.
func calcTableLen(n, minLen int) int {
	return nextPowOf2(max(n, minLen))
}
