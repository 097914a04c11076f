package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestPrometheusExporter_WriteMetrics(t *testing.T) {
	mc := NewMetricsCollector()
	mc.RecordFetch(time.Millisecond, true)
	mc.RecordEviction(true)
	mc.RecordFlush()
	mc.RecordHashInsert(time.Millisecond)
	mc.RecordResize()

	exporter := NewPrometheusExporter(mc)
	var buf strings.Builder
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"storage_page_fetches_total 1",
		"storage_evictions_total 1",
		"storage_flushes_total 1",
		"storage_hash_table_inserts_total 1",
		"storage_hash_table_resizes_total 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\nfull output:\n%s", want, out)
		}
	}
}

func TestPrometheusExporter_SetNamespace(t *testing.T) {
	mc := NewMetricsCollector()
	exporter := NewPrometheusExporter(mc)
	exporter.SetNamespace("custom")

	var buf strings.Builder
	if err := exporter.WriteMetrics(&buf); err != nil {
		t.Fatalf("WriteMetrics: %v", err)
	}
	if !strings.Contains(buf.String(), "custom_uptime_seconds") {
		t.Fatal("namespace override not reflected in output")
	}
}
