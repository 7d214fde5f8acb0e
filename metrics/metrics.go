// Package metrics exports Dict statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/llxisdsh/dict"
)

const (
	namespace = "dict"

	MetricBuckets         = "buckets"
	MetricTargetBuckets   = "target_buckets"
	MetricEntries         = "entries"
	MetricEmptyBuckets    = "empty_buckets"
	MetricMaxChain        = "max_chain"
	MetricMigrating       = "migrating"
	MetricLiveIterators   = "live_iterators"
	MetricGrowths         = "growths_total"
	MetricShrinks         = "shrinks_total"
	MetricMigratedBuckets = "migrated_buckets_total"
)

// StatsSource is implemented by *dict.Dict of any type parameters.
type StatsSource interface {
	Stats() *dict.Stats
}

type statDesc struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(s *dict.Stats) float64
}

// Collector is a prometheus.Collector reporting one snapshot of a dict's
// Stats per scrape. The dict is single-owner, so the owner must make sure
// scrapes do not race with other calls, e.g. by registering with a
// registry that is only gathered from the owning goroutine.
type Collector struct {
	src   StatsSource
	stats []statDesc
}

// NewCollector returns a Collector for src. name is attached to every
// metric as the "dict" label.
func NewCollector(src StatsSource, name string) *Collector {
	labels := prometheus.Labels{"dict": name}
	newDesc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}
	return &Collector{
		src: src,
		stats: []statDesc{
			{
				newDesc(MetricBuckets, "Bucket count of the current table."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.Buckets) },
			},
			{
				newDesc(MetricTargetBuckets, "Bucket count of the table being migrated to, 0 when idle."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.TargetBuckets) },
			},
			{
				newDesc(MetricEntries, "Number of entries."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.Size) },
			},
			{
				newDesc(MetricEmptyBuckets, "Number of empty buckets across both tables."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.EmptyBuckets) },
			},
			{
				newDesc(MetricMaxChain, "Length of the longest bucket chain."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.MaxChain) },
			},
			{
				newDesc(MetricMigrating, "1 while a migration is in progress."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 {
					if s.Migrating {
						return 1
					}
					return 0
				},
			},
			{
				newDesc(MetricLiveIterators, "Number of live iterators and scans."),
				prometheus.GaugeValue,
				func(s *dict.Stats) float64 { return float64(s.LiveIterators) },
			},
			{
				newDesc(MetricGrowths, "Number of completed grows."),
				prometheus.CounterValue,
				func(s *dict.Stats) float64 { return float64(s.TotalGrowths) },
			},
			{
				newDesc(MetricShrinks, "Number of completed shrinks."),
				prometheus.CounterValue,
				func(s *dict.Stats) float64 { return float64(s.TotalShrinks) },
			},
			{
				newDesc(MetricMigratedBuckets, "Number of non-empty buckets moved by migration."),
				prometheus.CounterValue,
				func(s *dict.Stats) float64 { return float64(s.MigratedBuckets) },
			},
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, s := range c.stats {
		ch <- s.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snapshot := c.src.Stats()
	for _, s := range c.stats {
		ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, s.value(snapshot))
	}
}
