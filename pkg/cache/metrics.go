package cache

import "github.com/prometheus/client_golang/prometheus"

// Collector exports engine statistics as Prometheus metrics. Metrics are
// read from Stats() at scrape time, so the engine keeps plain counters.
//
// Register it once per engine:
//
//	prometheus.MustRegister(cache.NewCollector(engine, "monucache"))
type Collector struct {
	engine *Engine

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	diskReads   *prometheus.Desc
	diskWrites  *prometheus.Desc
	hitRate     *prometheus.Desc
	memoryBytes *prometheus.Desc
	diskBytes   *prometheus.Desc
	memoryItems *prometheus.Desc
	diskItems   *prometheus.Desc
}

// NewCollector creates a Collector for the engine under the given
// namespace.
func NewCollector(e *Engine, namespace string) *Collector {
	return &Collector{
		engine: e,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hits_total"),
			"Total number of cache hits", nil, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "misses_total"),
			"Total number of cache misses", nil, nil),
		evictions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "evictions_total"),
			"Total number of capacity evictions across both tiers", nil, nil),
		diskReads: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "disk_reads_total"),
			"Total number of disk tier reads", nil, nil),
		diskWrites: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "disk_writes_total"),
			"Total number of disk tier writes", nil, nil),
		hitRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hit_rate"),
			"Fraction of gets satisfied without a miss", nil, nil),
		memoryBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "memory_usage_bytes"),
			"Bytes resident in the memory tier", nil, nil),
		diskBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "disk_usage_bytes"),
			"Bytes resident in the disk tier", nil, nil),
		memoryItems: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "memory_entries"),
			"Entries resident in the memory tier", nil, nil),
		diskItems: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "disk_entries"),
			"Entries resident in the disk tier", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.diskReads
	ch <- c.diskWrites
	ch <- c.hitRate
	ch <- c.memoryBytes
	ch <- c.diskBytes
	ch <- c.memoryItems
	ch <- c.diskItems
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.engine.Stats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.diskReads, prometheus.CounterValue, float64(s.DiskReads))
	ch <- prometheus.MustNewConstMetric(c.diskWrites, prometheus.CounterValue, float64(s.DiskWrites))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
	ch <- prometheus.MustNewConstMetric(c.memoryBytes, prometheus.GaugeValue, float64(s.MemoryUsageBytes))
	ch <- prometheus.MustNewConstMetric(c.diskBytes, prometheus.GaugeValue, float64(s.DiskUsageBytes))
	ch <- prometheus.MustNewConstMetric(c.memoryItems, prometheus.GaugeValue, float64(s.MemoryEntries))
	ch <- prometheus.MustNewConstMetric(c.diskItems, prometheus.GaugeValue, float64(s.DiskEntries))
}
