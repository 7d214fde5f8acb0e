package dict

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/llxisdsh/dict/logger"
)

// Dict is a chained hash table that never rehashes in one go. When it
// outgrows its bucket array it allocates a second one and moves the
// entries over a bucket at a time, piggybacking on ordinary Get, Add,
// Replace and Remove calls, or when driven explicitly through Migrate
// and MigrateFor.
//
// Key features of dict.Dict:
//   - Incremental rehashing: no stop-the-world pause on grow or shrink
//   - Iterators that freeze migration while they are bound to an entry,
//     so entries are never moved under a live traversal
//   - A stateless Scan whose cursor survives resizes between calls
//   - Zero-value usability with lazy initialization
//   - Defaults to xxHash for strings and multiplicative mixing for
//     integers, customizable on creation
//
// A Dict is owned by a single goroutine; it performs no locking. A Dict
// must not be copied after first use.
type Dict[K comparable, V any] struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		current         unsafe.Pointer
		target          unsafe.Pointer
		migrateIdx      int
		iterators       int
		resizable       bool
		keyHash         func()
		seed            uint64
		cfg             Config
		log             logger.Logger
		totalGrowths    uint32
		totalShrinks    uint32
		migratedBuckets uint64
	}{})%CacheLineSize) % CacheLineSize]byte

	_ noCopy

	current *bucketTable[K, V]
	// target is non-nil while a migration is in progress.
	target *bucketTable[K, V]
	// migrateIdx is the first bucket of current not yet migrated;
	// every bucket below it is empty.
	migrateIdx int
	// iterators counts bound iterators and in-flight scans.
	iterators int
	resizable bool

	keyHash HashFunc[K]
	seed    uint64
	cfg     Config
	log     logger.Logger

	totalGrowths    uint32
	totalShrinks    uint32
	migratedBuckets uint64
}

// New creates a new Dict instance. Direct initialization is also supported.
//
// Parameters:
//   - WithMinCapacity or WithPresize for the initial bucket count
//   - WithResizeRatio and WithForceResizeRatio for the grow policy
//   - WithLogger to receive resize events
func New[K comparable, V any](options ...func(*Config)) *Dict[K, V] {
	return NewWithHasher[K, V](nil, options...)
}

// NewWithHasher creates a Dict with a custom key hasher. A nil keyHash
// selects the default hasher for K.
func NewWithHasher[K comparable, V any](
	keyHash HashFunc[K],
	options ...func(*Config),
) *Dict[K, V] {
	d := &Dict[K, V]{}
	d.init(keyHash, options...)
	return d
}

func (d *Dict[K, V]) init(keyHash HashFunc[K], options ...func(*Config)) {
	c := NewConfig()
	for _, o := range options {
		o(c)
	}
	if err := c.Validate(); err != nil {
		panic(errors.Wrap(err, "dict: invalid config"))
	}
	if c.Logger == nil {
		c.Logger = logger.NopLogger
	}
	c.MinCapacity = nextPowOf2(c.MinCapacity)

	d.cfg = *c
	d.log = c.Logger
	d.seed = rand.Uint64()
	d.keyHash = keyHash
	if d.keyHash == nil {
		d.keyHash = defaultHasher[K]()
	}
	d.resizable = true
	d.current = newBucketTable[K, V](d.cfg.MinCapacity)
}

//go:nosplit
func (d *Dict[K, V]) lazyInit() {
	if d.current == nil {
		d.init(nil)
	}
}

//go:nosplit
func (d *Dict[K, V]) hash(key K) uint64 {
	return d.keyHash(key, d.seed)
}

// writeTable is where new and relocated entries go: the target while
// migrating, else current.
//
//go:nosplit
func (d *Dict[K, V]) writeTable() *bucketTable[K, V] {
	if d.target != nil {
		return d.target
	}
	return d.current
}

// lookup nudges a pending migration by one step, then returns the hash of
// key along with the table and entry holding it, if any.
func (d *Dict[K, V]) lookup(key K) (uint64, *bucketTable[K, V], *entry[K, V]) {
	d.lazyInit()
	hash := d.hash(key)
	if d.IsZero() {
		return hash, nil, nil
	}
	if d.target != nil {
		d.Migrate(1)
	}
	if e := d.current.find(hash, key); e != nil {
		return hash, d.current, e
	}
	if d.target != nil {
		if e := d.target.find(hash, key); e != nil {
			return hash, d.target, e
		}
	}
	return hash, nil, nil
}

// Get returns the value stored for key, or the zero value and false.
func (d *Dict[K, V]) Get(key K) (value V, ok bool) {
	if _, _, e := d.lookup(key); e != nil {
		return e.value, true
	}
	return
}

// Has reports whether key is present.
func (d *Dict[K, V]) Has(key K) bool {
	_, _, e := d.lookup(key)
	return e != nil
}

// Add inserts key with value unless the key is already present, in which
// case nothing changes and false is returned.
func (d *Dict[K, V]) Add(key K, value V) bool {
	hash, _, e := d.lookup(key)
	if e != nil {
		return false
	}
	d.insert(hash, &entry[K, V]{key: key, value: value})
	return true
}

// Replace stores value for key whether or not it was present. It reports
// whether an existing entry was updated.
//
// During a migration an entry still in the old table is unlinked and
// relinked into the new one, unless an iterator or scan is live, in which
// case it is updated where it stands.
func (d *Dict[K, V]) Replace(key K, value V) (loaded bool) {
	hash, t, e := d.lookup(key)
	if e == nil {
		d.insert(hash, &entry[K, V]{key: key, value: value})
		return false
	}
	e.value = value
	if t == d.writeTable() || d.iterators > 0 {
		return true
	}
	if t.unlink(hash, key) != e {
		panic(errors.Errorf("dict: entry for key %v vanished from its chain", key))
	}
	d.writeTable().pushFront(hash, e)
	return true
}

// Remove deletes key and reports whether it was present.
func (d *Dict[K, V]) Remove(key K) bool {
	hash, t, e := d.lookup(key)
	if e == nil {
		return false
	}
	if t.unlink(hash, key) != e {
		panic(errors.Errorf("dict: entry for key %v vanished from its chain", key))
	}
	e.removed = true
	return true
}

func (d *Dict[K, V]) insert(hash uint64, e *entry[K, V]) {
	d.writeTable().pushFront(hash, e)
	d.Expand()
}

// Clear removes every entry and returns to a single minimum-capacity
// table. Clearing while an iterator or scan is live is a programming
// error and panics.
func (d *Dict[K, V]) Clear() {
	d.lazyInit()
	if d.iterators > 0 {
		panic(errors.Errorf("dict: Clear called with %d live iterators", d.iterators))
	}
	d.current = newBucketTable[K, V](d.cfg.MinCapacity)
	d.target = nil
	d.migrateIdx = 0
}

// Size returns the number of entries across both tables. This is an O(1)
// operation.
func (d *Dict[K, V]) Size() int {
	if d.current == nil {
		return 0
	}
	n := d.current.size
	if d.target != nil {
		n += d.target.size
	}
	return n
}

// IsZero checks whether the Dict holds no entries.
func (d *Dict[K, V]) IsZero() bool {
	return d.Size() == 0
}

// Capacity returns the bucket count of the current table.
func (d *Dict[K, V]) Capacity() int {
	d.lazyInit()
	return d.current.capacity()
}

// IsMigrating reports whether a migration is in progress.
func (d *Dict[K, V]) IsMigrating() bool {
	return d.target != nil
}

// IsMigratable reports whether migration may advance, i.e. no iterator
// or scan is live.
func (d *Dict[K, V]) IsMigratable() bool {
	return d.iterators == 0
}

// SetResizable enables or disables the regular grow policy. While
// disabled, a grow only starts once the force resize ratio is reached,
// and Shrink does nothing.
func (d *Dict[K, V]) SetResizable(resizable bool) {
	d.lazyInit()
	d.resizable = resizable
}

// Resizable reports whether the regular grow policy is enabled.
func (d *Dict[K, V]) Resizable() bool {
	d.lazyInit()
	return d.resizable
}

// ToMap collect all entries and return a map[K]V
func (d *Dict[K, V]) ToMap() map[K]V {
	return d.ToMapWithLimit(-1)
}

// ToMapWithLimit collect up to limit entries into a map[K]V, limit < 0 is no limit
func (d *Dict[K, V]) ToMapWithLimit(limit int) map[K]V {
	if limit == 0 {
		return map[K]V{}
	}
	if limit < 0 {
		limit = math.MaxInt
	}
	a := make(map[K]V, min(d.Size(), limit))
	d.Range(func(k K, v V) bool {
		a[k] = v
		limit--
		return limit > 0
	})
	return a
}

// String implement the formatting output interface fmt.Stringer
func (d *Dict[K, V]) String() string {
	const limit = 1024
	return strings.Replace(fmt.Sprint(d.ToMapWithLimit(limit)), "map[", "Dict[", 1)
}

// noCopy may be added to structs which must not be copied after first
// use. It is recognized by go vet's copylocks checker.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
