package dict

import (
	"time"

	"github.com/pkg/errors"
)

// Expand starts a grow to twice the current size when the load factor
// calls for it. It does nothing while a migration is in progress. With
// resizing disabled only the force resize ratio starts a grow.
//
// Expand runs after every insert; calling it directly is only needed
// after SetResizable(true) re-enables a dict that was held back.
func (d *Dict[K, V]) Expand() {
	d.lazyInit()
	if d.IsMigrating() {
		return
	}
	size, buckets := d.current.size, d.current.capacity()
	if size < d.cfg.ResizeRatio*buckets {
		return
	}
	if d.resizable || size >= d.cfg.ForceResizeRatio*buckets {
		d.Resize(size * 2)
	}
}

// Shrink starts a migration to the smallest table that still holds every
// entry, never below the minimum capacity. It does nothing while resizing
// is disabled or a migration is in progress.
func (d *Dict[K, V]) Shrink() {
	d.lazyInit()
	if !d.resizable || d.IsMigrating() {
		return
	}
	d.Resize(max(d.current.size, d.cfg.MinCapacity))
}

// Resize starts a migration to a table of n buckets, rounded up to a power
// of 2 and to the minimum capacity. The request is ignored while migrating,
// when n is below the entry count, or when the rounded size equals the
// current bucket count.
func (d *Dict[K, V]) Resize(n int) {
	d.lazyInit()
	if d.IsMigrating() || n < d.Size() {
		return
	}
	tableLen := calcTableLen(n, d.cfg.MinCapacity)
	if tableLen == d.current.capacity() {
		return
	}
	d.target = newBucketTable[K, V](tableLen)
	d.migrateIdx = 0
	d.log.Debugf("dict: resize started, %d -> %d buckets, %d entries",
		d.current.capacity(), tableLen, d.current.size)
}

// Migrate moves up to steps non-empty buckets from the current table to the
// target. Empty buckets are skipped at no step cost, but at most
// steps*EmptyVisits of them per call. Migrate does nothing while an
// iterator or scan is live.
//
// It reports whether work remains, so a caller may loop:
//
//	for d.Migrate(100) {
//		// yield
//	}
//
// Note that the loop spins if an iterator is never closed.
func (d *Dict[K, V]) Migrate(steps int) bool {
	d.lazyInit()
	if d.target == nil {
		return false
	}
	if d.iterators > 0 {
		return true
	}
	emptyVisits := steps * d.cfg.EmptyVisits
	for ; steps > 0 && d.current.size != 0; steps-- {
		for d.current.buckets[d.migrateIdx] == nil {
			d.migrateIdx++
			if d.migrateIdx >= d.current.capacity() {
				panic(errors.Errorf("dict: migrate index %d ran past %d buckets with %d entries left",
					d.migrateIdx, d.current.capacity(), d.current.size))
			}
			emptyVisits--
			if emptyVisits == 0 {
				return true
			}
		}
		d.migrateBucket(d.migrateIdx)
		d.migrateIdx++
	}
	if d.current.size == 0 {
		d.finishMigration()
		return false
	}
	return true
}

// MigrateFor drives the migration in batches of MigrateBatch steps until it
// completes, an iterator blocks it, or budget has elapsed. The clock is
// read once per batch, so a call may overrun budget by one batch. It
// returns the number of batches performed.
func (d *Dict[K, V]) MigrateFor(budget time.Duration) int {
	d.lazyInit()
	deadline := time.Now().Add(budget)
	batches := 0
	for d.IsMigrating() && d.IsMigratable() {
		d.Migrate(d.cfg.MigrateBatch)
		batches++
		if !time.Now().Before(deadline) {
			break
		}
	}
	return batches
}

// migrateBucket relinks every entry of current bucket idx into the target.
func (d *Dict[K, V]) migrateBucket(idx int) {
	e := d.current.buckets[idx]
	for e != nil {
		next := e.next
		d.target.pushFront(d.hash(e.key), e)
		d.current.size--
		e = next
	}
	d.current.buckets[idx] = nil
	d.migratedBuckets++
}

func (d *Dict[K, V]) finishMigration() {
	from, to := d.current.capacity(), d.target.capacity()
	if to > from {
		d.totalGrowths++
	} else {
		d.totalShrinks++
	}
	d.current = d.target
	d.target = nil
	d.migrateIdx = 0
	d.log.Debugf("dict: resize finished, %d -> %d buckets, %d entries",
		from, to, d.current.size)
}
