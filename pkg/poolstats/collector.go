// Package poolstats exports [pool.Stat] values as Prometheus metrics.
package poolstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quay/lockcore/pool"
)

var _ prometheus.Collector = (*Collector)(nil)

// Stater is a provider of the Stat() function. Implemented by [pool.Pool].
type Stater interface {
	Stat() pool.Stat
}

var _ Stater = (*pool.Pool)(nil)

// Collector is a prometheus.Collector that collects the statistics produced
// by [pool.Pool.Stat].
type Collector struct {
	name  string
	stats Stater

	capacityDesc  *prometheus.Desc
	activeDesc    *prometheus.Desc
	createsDesc   *prometheus.Desc
	destroysDesc  *prometheus.Desc
	acquiresDesc  *prometheus.Desc
	yieldsDesc    *prometheus.Desc
	abandonedDesc *prometheus.Desc
}

// NewCollector creates a new Collector for the provided Stater. The name is
// attached to every metric as the "pool" label, which distinguishes pools
// when an application has more than one.
func NewCollector(s Stater, name string) *Collector {
	return &Collector{
		name:  name,
		stats: s,
		capacityDesc: prometheus.NewDesc(
			"lockcore_pool_capacity",
			"Number of lock slots in the pool.",
			staticLabels, nil),
		activeDesc: prometheus.NewDesc(
			"lockcore_pool_active_locks",
			"Number of currently allocated lock slots.",
			staticLabels, nil),
		createsDesc: prometheus.NewDesc(
			"lockcore_pool_creates_total",
			"Cumulative count of successful lock allocations.",
			staticLabels, nil),
		destroysDesc: prometheus.NewDesc(
			"lockcore_pool_destroys_total",
			"Cumulative count of successful lock destructions.",
			staticLabels, nil),
		acquiresDesc: prometheus.NewDesc(
			"lockcore_pool_acquires_total",
			"Cumulative count of successful lock acquisitions.",
			staticLabels, nil),
		yieldsDesc: prometheus.NewDesc(
			"lockcore_pool_yields_total",
			"Cumulative count of yields performed by waiting acquirers.",
			staticLabels, nil),
		abandonedDesc: prometheus.NewDesc(
			"lockcore_pool_destroyed_while_waiting_total",
			"Cumulative count of acquisitions that returned because the lock was destroyed.",
			staticLabels, nil),
	}
}

var staticLabels = []string{"pool"}

// Describe implements the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect implements the prometheus.Collector interface.
func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	s := c.stats.Stat()
	gauge := func(d *prometheus.Desc, v int) {
		metrics <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), c.name)
	}
	counter := func(d *prometheus.Desc, v int64) {
		metrics <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), c.name)
	}
	gauge(c.capacityDesc, s.Capacity)
	gauge(c.activeDesc, s.Active)
	counter(c.createsDesc, s.Creates)
	counter(c.destroysDesc, s.Destroys)
	counter(c.acquiresDesc, s.Acquires)
	counter(c.yieldsDesc, s.Yields)
	counter(c.abandonedDesc, s.Abandoned)
}
