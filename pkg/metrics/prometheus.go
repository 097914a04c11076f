package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// PrometheusExporter exports metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	collector *MetricsCollector
	namespace string // metric name prefix, e.g. "storage"
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *MetricsCollector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		namespace: "storage",
	}
}

// SetNamespace sets the metric namespace prefix.
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to w.
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	uptime := time.Since(pe.collector.startTime).Seconds()
	if err := pe.writeGauge(w, "uptime_seconds", "Process uptime in seconds", uptime); err != nil {
		return err
	}

	fetches := atomic.LoadUint64(&pe.collector.pageFetches)
	hits := atomic.LoadUint64(&pe.collector.pageFetchHits)
	misses := atomic.LoadUint64(&pe.collector.pageFetchMisses)
	totalFetchTime := atomic.LoadUint64(&pe.collector.totalFetchTime)

	if err := pe.writeCounter(w, "page_fetches_total", "Total FetchPage calls", fetches); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "page_fetch_hits_total", "FetchPage calls served from a resident frame", hits); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "page_fetch_misses_total", "FetchPage calls that faulted in from disk", misses); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "page_fetch_duration_nanoseconds_total", "Total time spent in FetchPage", totalFetchTime); err != nil {
		return err
	}
	if err := pe.writeHistogram(w, "page_fetch_duration_seconds", "FetchPage duration histogram", pe.collector.fetchTimings); err != nil {
		return err
	}
	if err := pe.writePercentiles(w, "page_fetch_duration_seconds", pe.collector.fetchTimings); err != nil {
		return err
	}

	evictions := atomic.LoadUint64(&pe.collector.evictions)
	dirtyEvictions := atomic.LoadUint64(&pe.collector.dirtyEvictions)
	flushes := atomic.LoadUint64(&pe.collector.flushes)

	if err := pe.writeCounter(w, "evictions_total", "Total frames victimized by the replacer", evictions); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "dirty_evictions_total", "Victimized frames that required a write-back", dirtyEvictions); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "flushes_total", "Total pages written back to disk", flushes); err != nil {
		return err
	}

	gets := atomic.LoadUint64(&pe.collector.hashGets)
	inserts := atomic.LoadUint64(&pe.collector.hashInserts)
	removes := atomic.LoadUint64(&pe.collector.hashRemoves)
	resizes := atomic.LoadUint64(&pe.collector.hashResizes)

	if err := pe.writeCounter(w, "hash_table_gets_total", "Total GetValue calls", gets); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "hash_table_inserts_total", "Total Insert calls", inserts); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "hash_table_removes_total", "Total Remove calls", removes); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "hash_table_resizes_total", "Total Resize calls", resizes); err != nil {
		return err
	}
	if err := pe.writeHistogram(w, "hash_table_op_duration_seconds", "Hash table operation duration histogram", pe.collector.opTimings); err != nil {
		return err
	}
	if err := pe.writePercentiles(w, "hash_table_op_duration_seconds", pe.collector.opTimings); err != nil {
		return err
	}

	return nil
}

func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}

func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		metricName, help, metricName, metricName, value)
	return err
}

// writeHistogram writes Prometheus-style cumulative histogram buckets
// derived from a TimingHistogram's fixed-width latency buckets.
func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, th *TimingHistogram) error {
	metricName := pe.namespace + "_" + name
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", metricName, help, metricName); err != nil {
		return err
	}

	buckets := th.GetBuckets()
	var cumulative uint64

	for _, b := range []struct {
		le  string
		key string
	}{
		{"0.001", "0-1ms"},
		{"0.01", "1-10ms"},
		{"0.1", "10-100ms"},
		{"1.0", "100-1000ms"},
		{"+Inf", ">1000ms"},
	} {
		cumulative += buckets[b.key]
		if _, err := fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", metricName, b.le, cumulative); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "%s_count %d\n", metricName, cumulative)
	return err
}

func (pe *PrometheusExporter) writePercentiles(w io.Writer, baseName string, th *TimingHistogram) error {
	percentiles := th.GetPercentiles()
	for _, p := range []string{"p50", "p95", "p99"} {
		if err := pe.writeGauge(w, baseName+"_"+p,
			fmt.Sprintf("%s percentile of %s", p, baseName),
			percentiles[p].Seconds()); err != nil {
			return err
		}
	}
	return nil
}
