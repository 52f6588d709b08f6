package signals

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/KeatonTech/futures-signals-im/utils"
)

var DiffsAdded = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signals",
	Subsystem: "pull_source",
	Name:      "diffs_added",
}, []string{"source"})

var MergeOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signals",
	Subsystem: "pull_source",
	Name:      "merges",
}, []string{"source", "outcome"})

var Pulls = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signals",
	Subsystem: "pull_source",
	Name:      "pulls",
}, []string{"source", "kind"})

var BroadcastAdvances = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "signals",
	Subsystem: "broadcast",
	Name:      "advances",
}, []string{"broadcaster"})

// Collectors returns every package-level metric for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{DiffsAdded, MergeOutcomes, Pulls, BroadcastAdvances}
}

// SourceStats is a point-in-time view of one diff log.
type SourceStats struct {
	Depth     int // diffs currently retained
	OpenKeys  int // compaction index size
	Consumers int // consumer ids ever issued
}

// StatsSource is implemented by PullSource; containers hand theirs to a
// DepthCollector for tracking.
type StatsSource interface {
	Name() string
	Stats() SourceStats
}

// DepthCollector reports live depth gauges for every tracked diff log.
type DepthCollector struct {
	sources utils.CMap[string, StatsSource]

	depth     *prometheus.Desc
	openKeys  *prometheus.Desc
	consumers *prometheus.Desc
}

func NewDepthCollector() *DepthCollector {
	return &DepthCollector{
		depth: prometheus.NewDesc(
			"signals_pull_source_depth",
			"Number of diffs currently retained in the log",
			[]string{"source"}, nil,
		),
		openKeys: prometheus.NewDesc(
			"signals_pull_source_open_keys",
			"Number of keys with a still-compactable diff",
			[]string{"source"}, nil,
		),
		consumers: prometheus.NewDesc(
			"signals_pull_source_consumers",
			"Number of consumer ids ever issued",
			[]string{"source"}, nil,
		),
	}
}

// Track adds a source to the collector. Sources are never untracked;
// collections live as long as their observers anyway.
func (c *DepthCollector) Track(s StatsSource) {
	c.sources.Store(s.Name(), s)
}

func (c *DepthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.depth
	ch <- c.openKeys
	ch <- c.consumers
}

func (c *DepthCollector) Collect(ch chan<- prometheus.Metric) {
	c.sources.Range(func(name string, s StatsSource) bool {
		stats := s.Stats()
		ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(stats.Depth), name)
		ch <- prometheus.MustNewConstMetric(c.openKeys, prometheus.GaugeValue, float64(stats.OpenKeys), name)
		ch <- prometheus.MustNewConstMetric(c.consumers, prometheus.GaugeValue, float64(stats.Consumers), name)
		return true
	})
}
