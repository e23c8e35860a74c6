// Package pdtmetrics exposes a dictionary's runtime counters as
// Prometheus gauges, for the benchmark harness's --metrics flag.
package pdtmetrics

import "github.com/prometheus/client_golang/prometheus"

// Snapshot is the set of counters scraped from a dictionary at collect
// time. Collector doesn't depend on pathtrie.Dict directly so it can
// collect from either a pathtrie.Dict or a safe.Dict behind one call.
type Snapshot struct {
	NumKeys  uint64
	NumSteps uint64
	NumChars uint64
}

// Collector adapts a Snapshot source into a prometheus.Collector. Each
// scrape calls source() exactly once, so all three gauges of one collect
// come from the same Snapshot.
type Collector struct {
	source func() Snapshot

	numKeys  *prometheus.Desc
	numSteps *prometheus.Desc
	numChars *prometheus.Desc
}

// NewCollector wraps source as a prometheus.Collector under the given
// metric namespace (e.g. "pathtrie").
func NewCollector(namespace string, source func() Snapshot) *Collector {
	return &Collector{
		source: source,
		numKeys: prometheus.NewDesc(
			namespace+"_num_keys", "Number of distinct keys stored.", nil, nil),
		numSteps: prometheus.NewDesc(
			namespace+"_num_steps", "Number of step nodes chaining long labels.", nil, nil),
		numChars: prometheus.NewDesc(
			namespace+"_num_chars", "Number of distinct key bytes observed.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.numKeys
	ch <- c.numSteps
	ch <- c.numChars
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.source()
	ch <- prometheus.MustNewConstMetric(c.numKeys, prometheus.GaugeValue, float64(snap.NumKeys))
	ch <- prometheus.MustNewConstMetric(c.numSteps, prometheus.GaugeValue, float64(snap.NumSteps))
	ch <- prometheus.MustNewConstMetric(c.numChars, prometheus.GaugeValue, float64(snap.NumChars))
}
