package dict

import (
	"fmt"
	"math"
	"strings"
)

// Stats is Dict statistics.
//
// Warning: map statistics are intented to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type Stats struct {
	// Buckets is the bucket count of the current table.
	Buckets int
	// TargetBuckets is the bucket count of the table being migrated
	// to, or 0 when no migration is in progress.
	TargetBuckets int
	// EmptyBuckets is the number of buckets, across both tables, that
	// hold no entries.
	EmptyBuckets int
	// Size is the exact number of entries stored in the dict.
	Size int
	// CurrentSize and TargetSize split Size between the two tables.
	CurrentSize int
	TargetSize  int
	// MinChain is the shortest non-empty chain.
	MinChain int
	// MaxChain is the longest chain.
	MaxChain int
	// Migrating reports whether a migration is in progress.
	Migrating bool
	// MigrateIndex is the first bucket of the current table that has not
	// been migrated yet.
	MigrateIndex int
	// LiveIterators is the number of bound iterators and in-flight scans.
	LiveIterators int
	// Resizable reports whether the regular grow policy is enabled.
	Resizable bool
	// TotalGrowths is the number of completed grows.
	TotalGrowths uint32
	// TotalShrinks is the number of completed shrinks.
	TotalShrinks uint32
	// MigratedBuckets is the number of non-empty buckets moved by
	// migration steps over the dict's lifetime.
	MigratedBuckets uint64
}

// ToString returns string representation of dict stats.
func (s *Stats) ToString() string {
	var sb strings.Builder
	sb.WriteString("Stats{\n")
	sb.WriteString(fmt.Sprintf("Buckets:         %d\n", s.Buckets))
	sb.WriteString(fmt.Sprintf("TargetBuckets:   %d\n", s.TargetBuckets))
	sb.WriteString(fmt.Sprintf("EmptyBuckets:    %d\n", s.EmptyBuckets))
	sb.WriteString(fmt.Sprintf("Size:            %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("CurrentSize:     %d\n", s.CurrentSize))
	sb.WriteString(fmt.Sprintf("TargetSize:      %d\n", s.TargetSize))
	sb.WriteString(fmt.Sprintf("MinChain:        %d\n", s.MinChain))
	sb.WriteString(fmt.Sprintf("MaxChain:        %d\n", s.MaxChain))
	sb.WriteString(fmt.Sprintf("Migrating:       %t\n", s.Migrating))
	sb.WriteString(fmt.Sprintf("MigrateIndex:    %d\n", s.MigrateIndex))
	sb.WriteString(fmt.Sprintf("LiveIterators:   %d\n", s.LiveIterators))
	sb.WriteString(fmt.Sprintf("Resizable:       %t\n", s.Resizable))
	sb.WriteString(fmt.Sprintf("TotalGrowths:    %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalShrinks:    %d\n", s.TotalShrinks))
	sb.WriteString(fmt.Sprintf("MigratedBuckets: %d\n", s.MigratedBuckets))
	sb.WriteString("}\n")
	return sb.String()
}

// Stats returns statistics for the Dict. Unlike Get, it does not advance
// a pending migration.
//
// The walk is O(buckets); keep it out of hot paths.
func (d *Dict[K, V]) Stats() *Stats {
	d.lazyInit()
	s := &Stats{
		Buckets:         d.current.capacity(),
		CurrentSize:     d.current.size,
		MinChain:        math.MaxInt,
		Migrating:       d.IsMigrating(),
		MigrateIndex:    d.migrateIdx,
		LiveIterators:   d.iterators,
		Resizable:       d.resizable,
		TotalGrowths:    d.totalGrowths,
		TotalShrinks:    d.totalShrinks,
		MigratedBuckets: d.migratedBuckets,
	}
	collectChains(s, d.current)
	if d.target != nil {
		s.TargetBuckets = d.target.capacity()
		s.TargetSize = d.target.size
		collectChains(s, d.target)
	}
	s.Size = s.CurrentSize + s.TargetSize
	if s.MinChain == math.MaxInt {
		s.MinChain = 0
	}
	return s
}

func collectChains[K comparable, V any](s *Stats, t *bucketTable[K, V]) {
	for i := 0; i < t.capacity(); i++ {
		n := t.chainLen(i)
		if n == 0 {
			s.EmptyBuckets++
			continue
		}
		s.MinChain = min(s.MinChain, n)
		s.MaxChain = max(s.MaxChain, n)
	}
}
