package dict

// Iterator walks every entry of a Dict: the current table first, then the
// target table if a migration is in progress. Once Next has returned true
// the iterator is bound and migration is frozen until it is exhausted or
// closed, so no entry is moved out from under it.
//
// While bound, entries may be added, replaced or removed, including the
// one the iterator stands on. Removed entries are skipped. Entries added
// during the walk may or may not be visited.
//
// An abandoned bound iterator blocks migration for good; use Close, or
// prefer All and Range, which close for you.
type Iterator[K comparable, V any] struct {
	d        *Dict[K, V]
	cur      *entry[K, V]
	index    int
	inTarget bool
	bound    bool
	done     bool
}

// Iter returns an iterator positioned before the first entry.
func (d *Dict[K, V]) Iter() *Iterator[K, V] {
	d.lazyInit()
	return &Iterator[K, V]{d: d, index: -1}
}

// Next advances to the next entry and reports whether there is one.
func (it *Iterator[K, V]) Next() bool {
	if it.done {
		return false
	}
	var e *entry[K, V]
	if it.cur != nil {
		e = it.cur.next
	}
	for {
		for e != nil && e.removed {
			e = e.next
		}
		if e != nil {
			break
		}
		t := it.table()
		it.index++
		if it.index >= t.capacity() {
			if !it.inTarget && it.d.target != nil {
				it.inTarget = true
				it.index = -1
				continue
			}
			it.Close()
			return false
		}
		e = t.buckets[it.index]
	}
	if !it.bound {
		it.bound = true
		it.d.iterators++
	}
	it.cur = e
	return true
}

func (it *Iterator[K, V]) table() *bucketTable[K, V] {
	if it.inTarget {
		return it.d.target
	}
	return it.d.current
}

// Key returns the key of the current entry.
func (it *Iterator[K, V]) Key() K {
	return it.cur.key
}

// Value returns the value of the current entry.
func (it *Iterator[K, V]) Value() V {
	return it.cur.value
}

// Done reports whether the iterator is exhausted or closed.
func (it *Iterator[K, V]) Done() bool {
	return it.done
}

// Close releases the iterator. It is safe to call more than once.
func (it *Iterator[K, V]) Close() {
	if it.bound {
		it.bound = false
		it.d.iterators--
	}
	it.done = true
	it.cur = nil
}

// Equal reports whether both iterators stand on the same entry of the same
// dict. Any two exhausted iterators are equal.
func (it *Iterator[K, V]) Equal(other *Iterator[K, V]) bool {
	if it.done || other.done {
		return it.done == other.done
	}
	return it.d == other.d && it.cur == other.cur
}

// All returns an iterator over all entries, for use with range-over-func.
// The walk is closed when the loop ends or breaks.
//
// Example:
//
//	for k, v := range d.All() {
//		fmt.Println(k, v)
//	}
func (d *Dict[K, V]) All() func(yield func(K, V) bool) {
	return d.Range
}

// Keys is the iterator version of Range over keys only.
func (d *Dict[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		d.Range(func(k K, _ V) bool {
			return yield(k)
		})
	}
}

// Values is the iterator version of Range over values only.
func (d *Dict[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		d.Range(func(_ K, v V) bool {
			return yield(v)
		})
	}
}

// Range calls yield sequentially for each key and value present in the
// dict. If yield returns false, Range stops the iteration.
//
// The dict may be modified from within yield; see Iterator.
func (d *Dict[K, V]) Range(yield func(key K, value V) bool) {
	it := d.Iter()
	defer it.Close()
	for it.Next() {
		if !yield(it.Key(), it.Value()) {
			return
		}
	}
}
