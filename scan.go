package dict

import "math/bits"

// Scan visits a slice of the dict and returns the cursor for the next call.
// Start with cursor 0 and stop when 0 is returned again.
//
// Scan keeps no state between calls, yet every entry present for the whole
// scan is visited at least once, even if the dict grows or shrinks between
// calls. Entries may be visited more than once. This holds because the
// cursor advances by incrementing its reversed bits, so the buckets already
// covered remain covered under any larger or smaller power-of-2 mask.
//
// visit may modify the dict. Migration is frozen for the duration of the
// call.
func (d *Dict[K, V]) Scan(cursor uint64, visit func(key K, value V)) uint64 {
	d.lazyInit()
	if d.IsZero() {
		return 0
	}
	d.iterators++
	defer func() { d.iterators-- }()

	if d.target == nil {
		t := d.current
		m := t.mask()
		scanBucket(t, cursor&m, visit)
		return nextCursor(cursor, m)
	}

	small, big := d.current, d.target
	if small.capacity() > big.capacity() {
		small, big = big, small
	}
	m0, m1 := small.mask(), big.mask()

	scanBucket(small, cursor&m0, visit)
	// Visit every bucket of the larger table that expands the small one.
	for {
		scanBucket(big, cursor&m1, visit)
		cursor = nextCursor(cursor, m1)
		if cursor&(m0^m1) == 0 {
			break
		}
	}
	return cursor
}

func scanBucket[K comparable, V any](t *bucketTable[K, V], idx uint64, visit func(K, V)) {
	for e := t.buckets[idx]; e != nil; e = e.next {
		if !e.removed {
			visit(e.key, e.value)
		}
	}
}

// nextCursor sets the bits above mask, then increments the reversed cursor.
func nextCursor(v, mask uint64) uint64 {
	v |= ^mask
	v = rev(v)
	v++
	return rev(v)
}

//go:nosplit
func rev(v uint64) uint64 {
	return bits.Reverse64(v)
}
