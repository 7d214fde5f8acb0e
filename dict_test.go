package dict

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/llxisdsh/dict/logger"
)

type point struct {
	x, y int32
}

// identityHash places integer keys in bucket key&mask, ignoring the seed.
func identityHash(key int, _ uint64) uint64 {
	return uint64(key)
}

func TestDictSequentialAddMigrateRemove(t *testing.T) {
	const numEntries = 9000
	d := New[int, int]()
	sawMigration := false
	for i := 0; i < numEntries; i++ {
		if !d.Add(i, i) {
			t.Fatalf("key %d was already present", i)
		}
		if d.IsMigrating() {
			sawMigration = true
		}
	}
	if size := d.Size(); size != numEntries {
		t.Fatalf("size was: %d, expected: %d", size, numEntries)
	}
	if !sawMigration {
		t.Fatal("dict never started a migration")
	}

	d.MigrateFor(time.Second)
	if d.IsMigrating() {
		t.Fatalf("migration did not finish: %s", d.Stats().ToString())
	}

	for i := 0; i < numEntries; i += 4 {
		if !d.Remove(i) {
			t.Fatalf("key %d was not removed", i)
		}
	}
	for i := 0; i < numEntries; i++ {
		v, ok := d.Get(i)
		if i%4 == 0 {
			if ok {
				t.Fatalf("removed key %d is still present with value %d", i, v)
			}
			continue
		}
		if !ok || v != i {
			t.Fatalf("value was: %d (%v), expected: %d", v, ok, i)
		}
	}
	if size := d.Size(); size != numEntries-numEntries/4 {
		t.Fatalf("size was: %d, expected: %d", size, numEntries-numEntries/4)
	}
}

func TestDictAddReplaceRemove(t *testing.T) {
	d := New[int, string]()
	if !d.Add(5, "a") {
		t.Fatal("add of a new key failed")
	}
	if loaded := d.Replace(5, "b"); !loaded {
		t.Fatal("replace did not find the existing key")
	}
	if v, ok := d.Get(5); !ok || v != "b" {
		t.Fatalf("value was: %q (%v), expected: b", v, ok)
	}
	if !d.Remove(5) {
		t.Fatal("remove of an existing key failed")
	}
	if _, ok := d.Get(5); ok {
		t.Fatal("key 5 is still present")
	}
	if d.Remove(5) {
		t.Fatal("second remove reported success")
	}
}

func TestDictAddExistingIsNoop(t *testing.T) {
	d := New[string, int]()
	d.Add("foo", 1)
	if d.Add("foo", 2) {
		t.Fatal("add of an existing key reported success")
	}
	if v, _ := d.Get("foo"); v != 1 {
		t.Fatalf("value was: %d, expected: 1", v)
	}
	if d.Size() != 1 {
		t.Fatalf("size was: %d, expected: 1", d.Size())
	}
}

func TestDictReplaceInsertsMissingKey(t *testing.T) {
	d := New[string, int]()
	if d.Replace("foo", 1) {
		t.Fatal("replace of a missing key reported an update")
	}
	if v, ok := d.Get("foo"); !ok || v != 1 {
		t.Fatalf("value was: %d (%v), expected: 1", v, ok)
	}
}

func TestDictReplaceIdempotent(t *testing.T) {
	d := New[int, int]()
	for i := 0; i < 100; i++ {
		d.Add(i, i)
	}
	want := d.ToMap()
	for n := 0; n < 3; n++ {
		for i := 0; i < 100; i++ {
			d.Replace(i, i)
		}
		if diff := cmp.Diff(want, d.ToMap()); diff != "" {
			t.Fatalf("content changed after replace (-want +got):\n%s", diff)
		}
	}
}

func TestDictReplaceDuringMigration(t *testing.T) {
	d := NewWithHasher[int, int](identityHash)
	for i := 0; i < 4; i++ {
		d.Add(i, i)
	}
	if !d.IsMigrating() {
		t.Fatalf("expected a migration: %s", d.Stats().ToString())
	}
	// Highest buckets first, so entries are still in the old table.
	for i := 3; i >= 0; i-- {
		if !d.Replace(i, -i) {
			t.Fatalf("key %d was not found", i)
		}
	}
	for i := 0; i < 4; i++ {
		if v, ok := d.Get(i); !ok || v != -i {
			t.Fatalf("value was: %d (%v), expected: %d", v, ok, -i)
		}
	}
	if d.Size() != 4 {
		t.Fatalf("size was: %d, expected: 4", d.Size())
	}
}

func TestDictSizeMatchesReference(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	d := New[int, int]()
	ref := make(map[int]int)
	for i := 0; i < 20000; i++ {
		k := r.IntN(2048)
		switch r.IntN(4) {
		case 0:
			_, exists := ref[k]
			if d.Add(k, i) == exists {
				t.Fatalf("add(%d) disagreed with reference", k)
			}
			if !exists {
				ref[k] = i
			}
		case 1:
			_, exists := ref[k]
			if d.Replace(k, i) != exists {
				t.Fatalf("replace(%d) disagreed with reference", k)
			}
			ref[k] = i
		case 2:
			_, exists := ref[k]
			if d.Remove(k) != exists {
				t.Fatalf("remove(%d) disagreed with reference", k)
			}
			delete(ref, k)
		case 3:
			if i%512 == 0 {
				d.Shrink()
			}
			v, ok := d.Get(k)
			if rv, exists := ref[k]; ok != exists || v != rv {
				t.Fatalf("get(%d) was: %d (%v), expected: %d (%v)", k, v, ok, rv, exists)
			}
		}
		if d.Size() != len(ref) {
			t.Fatalf("size was: %d, expected: %d", d.Size(), len(ref))
		}
	}
	if diff := cmp.Diff(ref, d.ToMap()); diff != "" {
		t.Fatalf("content mismatch (-want +got):\n%s", diff)
	}
}

func TestDictZeroValue(t *testing.T) {
	var d Dict[string, int]
	if d.Size() != 0 || !d.IsZero() {
		t.Fatal("zero dict is not empty")
	}
	if _, ok := d.Get("foo"); ok {
		t.Fatal("value found in zero dict")
	}
	d.Add("foo", 1)
	if v, ok := d.Get("foo"); !ok || v != 1 {
		t.Fatalf("value was: %d (%v), expected: 1", v, ok)
	}
	if d.Capacity() != defaultMinCapacity {
		t.Fatalf("capacity was: %d, expected: %d", d.Capacity(), defaultMinCapacity)
	}
}

func TestDictStructKeys(t *testing.T) {
	d := New[point, string]()
	for i := int32(0); i < 128; i++ {
		d.Add(point{i, -i}, strconv.Itoa(int(i)))
	}
	for i := int32(0); i < 128; i++ {
		v, ok := d.Get(point{i, -i})
		if !ok || v != strconv.Itoa(int(i)) {
			t.Fatalf("value was: %q (%v), expected: %d", v, ok, i)
		}
	}
}

func TestDictHashableKeys(t *testing.T) {
	d := New[Key, int]()
	for i := 0; i < 256; i++ {
		d.Add(Key(fmt.Sprintf("key-%d", i)), i)
	}
	for i := 0; i < 256; i++ {
		if v, ok := d.Get(Key(fmt.Sprintf("key-%d", i))); !ok || v != i {
			t.Fatalf("value was: %d (%v), expected: %d", v, ok, i)
		}
	}
}

func TestDictWithHasher_HashCodeCollisions(t *testing.T) {
	d := NewWithHasher[int, int](func(int, uint64) uint64 { return 0 })
	for i := 0; i < 200; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	if s := d.Stats(); s.MaxChain != 200 {
		t.Fatalf("expected a single chain: %s", s.ToString())
	}
	for i := 0; i < 200; i += 2 {
		d.Remove(i)
	}
	for i := 0; i < 200; i++ {
		_, ok := d.Get(i)
		if ok != (i%2 == 1) {
			t.Fatalf("presence of key %d was: %v", i, ok)
		}
	}
}

func TestDictClear(t *testing.T) {
	d := New[int, int]()
	for i := 0; i < 1000; i++ {
		d.Add(i, i)
	}
	d.Clear()
	if d.Size() != 0 || d.IsMigrating() || d.Capacity() != defaultMinCapacity {
		t.Fatalf("dict not reset: %s", d.Stats().ToString())
	}
	d.Add(1, 1)
	if v, ok := d.Get(1); !ok || v != 1 {
		t.Fatalf("value was: %d (%v), expected: 1", v, ok)
	}
}

func TestDictClearWithLiveIteratorPanics(t *testing.T) {
	d := New[int, int]()
	d.Add(1, 1)
	it := d.Iter()
	defer it.Close()
	if !it.Next() {
		t.Fatal("iterator found no entry")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Clear did not panic")
		}
	}()
	d.Clear()
}

func TestNewInvalidConfigPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New did not panic")
		}
	}()
	New[int, int](WithResizeRatio(0))
}

func TestDictExpandDisabled(t *testing.T) {
	d := New[int, int]()
	d.SetResizable(false)
	if d.Resizable() {
		t.Fatal("dict still resizable")
	}
	for i := 0; i < defaultForceResizeRatio*defaultMinCapacity-1; i++ {
		d.Add(i, i)
	}
	if d.IsMigrating() || d.Capacity() != defaultMinCapacity {
		t.Fatalf("grow started below the force ratio: %s", d.Stats().ToString())
	}
	d.Add(-1, -1)
	if !d.IsMigrating() {
		t.Fatalf("grow did not start at the force ratio: %s", d.Stats().ToString())
	}
	d.MigrateFor(time.Second)
	if d.Capacity() != 64 {
		t.Fatalf("capacity was: %d, expected: 64", d.Capacity())
	}
}

func TestDictShrink(t *testing.T) {
	d := New[int, int]()
	for i := 0; i < 1000; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	for i := 10; i < 1000; i++ {
		d.Remove(i)
	}

	d.SetResizable(false)
	d.Shrink()
	if d.IsMigrating() {
		t.Fatal("shrink started while resizing is disabled")
	}

	d.SetResizable(true)
	d.Shrink()
	if !d.IsMigrating() {
		t.Fatalf("shrink did not start: %s", d.Stats().ToString())
	}
	d.MigrateFor(time.Second)
	if d.Capacity() != 16 {
		t.Fatalf("capacity was: %d, expected: 16", d.Capacity())
	}
	if s := d.Stats(); s.TotalShrinks != 1 {
		t.Fatalf("unexpected shrink count: %s", s.ToString())
	}
	for i := 0; i < 10; i++ {
		if v, ok := d.Get(i); !ok || v != i {
			t.Fatalf("value was: %d (%v), expected: %d", v, ok, i)
		}
	}

	for i := 0; i < 10; i++ {
		d.Remove(i)
	}
	d.Shrink()
	d.MigrateFor(time.Second)
	if d.Capacity() != defaultMinCapacity {
		t.Fatalf("capacity was: %d, expected: %d", d.Capacity(), defaultMinCapacity)
	}
}

func TestDictResizeIgnored(t *testing.T) {
	d := New[int, int](WithMinCapacity(16))
	for i := 0; i < 10; i++ {
		d.Add(i, i)
	}
	d.Resize(5)
	if d.IsMigrating() {
		t.Fatal("resize below size started a migration")
	}
	d.Resize(12)
	if d.IsMigrating() {
		t.Fatal("resize to the current capacity started a migration")
	}
	d.Resize(64)
	if !d.IsMigrating() {
		t.Fatal("resize did not start a migration")
	}
	d.Resize(256)
	if s := d.Stats(); s.TargetBuckets != 64 {
		t.Fatalf("resize during a migration replaced the target: %s", s.ToString())
	}
	d.MigrateFor(time.Second)
	if d.Capacity() != 64 {
		t.Fatalf("capacity was: %d, expected: 64", d.Capacity())
	}
}

func TestDictMigrateEmptyVisits(t *testing.T) {
	d := NewWithHasher[int, int](identityHash, WithMinCapacity(64))
	d.Add(63, 63)
	d.Resize(128)
	if !d.Migrate(1) {
		t.Fatal("migration finished within the empty bucket budget")
	}
	if s := d.Stats(); s.MigrateIndex != defaultEmptyVisits || s.CurrentSize != 1 {
		t.Fatalf("unexpected progress: %s", s.ToString())
	}
	if d.Migrate(10) {
		t.Fatalf("migration did not finish: %s", d.Stats().ToString())
	}
	if d.Capacity() != 128 || d.Size() != 1 {
		t.Fatalf("unexpected state: %s", d.Stats().ToString())
	}
	if s := d.Stats(); s.MigratedBuckets != 1 || s.TotalGrowths != 1 {
		t.Fatalf("unexpected counters: %s", s.ToString())
	}
}

func TestDictMigrateNotMigrating(t *testing.T) {
	d := New[int, int]()
	if d.Migrate(100) {
		t.Fatal("idle dict reported pending migration work")
	}
	if n := d.MigrateFor(time.Second); n != 0 {
		t.Fatalf("idle dict ran %d batches", n)
	}
}

func TestDictMigrateForZeroBudget(t *testing.T) {
	d := New[int, int](WithMigrateBatch(1))
	for i := 0; i < 1024; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	d.Resize(1 << 14)
	if n := d.MigrateFor(0); n != 1 {
		t.Fatalf("batches were: %d, expected: 1", n)
	}
	if !d.IsMigrating() {
		t.Fatal("a single step finished the migration")
	}
}

func TestDictMigrateBlockedByIterator(t *testing.T) {
	d := New[int, int]()
	for i := 0; i < 512; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	d.Resize(4096)

	it := d.Iter()
	if !it.Next() {
		t.Fatal("iterator found no entry")
	}
	if d.IsMigratable() {
		t.Fatal("bound iterator did not block migration")
	}
	before := d.Stats()
	if !d.Migrate(100) {
		t.Fatal("blocked migration reported completion")
	}
	if n := d.MigrateFor(time.Second); n != 0 {
		t.Fatalf("blocked migration ran %d batches", n)
	}
	d.Get(1)
	after := d.Stats()
	if after.MigrateIndex != before.MigrateIndex || after.CurrentSize != before.CurrentSize {
		t.Fatalf("migration advanced under a live iterator:\n%s%s", before.ToString(), after.ToString())
	}

	it.Close()
	it.Close()
	if !d.IsMigratable() {
		t.Fatal("closed iterator still blocks migration")
	}
	d.MigrateFor(time.Second)
	if d.IsMigrating() || d.Capacity() != 4096 {
		t.Fatalf("unexpected state: %s", d.Stats().ToString())
	}
}

func TestDictDebugLogging(t *testing.T) {
	l := logger.NewBufferLogger()
	d := New[int, int](WithLogger(l))
	for i := 0; i < 4; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	out := l.String()
	if !strings.Contains(out, "DEBUG: dict: resize started, 4 -> 8 buckets") {
		t.Fatalf("missing resize start in log:\n%s", out)
	}
	if !strings.Contains(out, "DEBUG: dict: resize finished, 4 -> 8 buckets, 4 entries") {
		t.Fatalf("missing resize finish in log:\n%s", out)
	}
}

func TestDictStats(t *testing.T) {
	d := New[int, int]()
	s := d.Stats()
	if s.Buckets != defaultMinCapacity || s.EmptyBuckets != defaultMinCapacity {
		t.Fatalf("unexpected number of buckets: %s", s.ToString())
	}
	if s.Size != 0 || s.MaxChain != 0 || s.MinChain != 0 {
		t.Fatalf("unexpected size: %s", s.ToString())
	}
	if s.Migrating || s.TargetBuckets != 0 || !s.Resizable {
		t.Fatalf("unexpected state: %s", s.ToString())
	}

	for i := 0; i < 200; i++ {
		d.Add(i, i)
	}
	d.MigrateFor(time.Second)
	s = d.Stats()
	if s.Size != 200 || s.CurrentSize != 200 || s.TargetSize != 0 {
		t.Fatalf("unexpected size: %s", s.ToString())
	}
	if s.Buckets < 200 || s.EmptyBuckets >= s.Buckets {
		t.Fatalf("unexpected number of buckets: %s", s.ToString())
	}
	if s.MaxChain < s.MinChain || s.MinChain < 1 {
		t.Fatalf("unexpected chain lengths: %s", s.ToString())
	}
	if s.TotalGrowths == 0 || s.TotalShrinks != 0 || s.MigratedBuckets == 0 {
		t.Fatalf("unexpected counters: %s", s.ToString())
	}

	d.Resize(4096)
	s = d.Stats()
	if !s.Migrating || s.TargetBuckets != 4096 || s.Size != 200 {
		t.Fatalf("unexpected migration state: %s", s.ToString())
	}
}

func TestDictString(t *testing.T) {
	d := New[int, int]()
	d.Add(1, 2)
	if s := d.String(); s != "Dict[1:2]" {
		t.Fatalf("string was: %q", s)
	}
	for i := 0; i < 2000; i++ {
		d.Add(i, i)
	}
	if n := len(d.ToMapWithLimit(1024)); n != 1024 {
		t.Fatalf("limited map size was: %d", n)
	}
	if n := len(d.ToMapWithLimit(0)); n != 0 {
		t.Fatalf("limited map size was: %d", n)
	}
}

func TestPresize(t *testing.T) {
	d := New[int, int](WithPresize(1000))
	if d.Capacity() != 1024 {
		t.Fatalf("capacity was: %d, expected: 1024", d.Capacity())
	}
	for i := 0; i < 1000; i++ {
		d.Add(i, i)
	}
	if d.IsMigrating() {
		t.Fatalf("presized dict grew: %s", d.Stats().ToString())
	}
}
