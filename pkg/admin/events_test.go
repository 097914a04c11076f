package admin

import (
	"testing"

	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

func TestEventHub_OnVictimRecordsMetrics(t *testing.T) {
	mc := metrics.NewMetricsCollector()
	hub := NewEventHub(mc)

	hub.OnVictim(storage.PageID(3), true)

	snap := mc.GetMetrics()
	evictions := snap["evictions"].(map[string]interface{})
	if evictions["total"].(uint64) != 1 {
		t.Fatalf("evictions.total = %v, want 1", evictions["total"])
	}
	if evictions["dirty"].(uint64) != 1 {
		t.Fatalf("evictions.dirty = %v, want 1", evictions["dirty"])
	}
}

func TestEventHub_OnFlushRecordsMetrics(t *testing.T) {
	mc := metrics.NewMetricsCollector()
	hub := NewEventHub(mc)

	hub.OnFlush(storage.PageID(7))

	snap := mc.GetMetrics()
	if snap["flushes"].(uint64) != 1 {
		t.Fatalf("flushes = %v, want 1", snap["flushes"])
	}
}

func TestEventHub_OnResizeRecordsMetrics(t *testing.T) {
	mc := metrics.NewMetricsCollector()
	hub := NewEventHub(mc)

	hub.OnResize(storage.PageID(1), storage.PageID(2), 8)

	snap := mc.GetMetrics()
	ht := snap["hash_table"].(map[string]interface{})
	if ht["resizes"].(uint64) != 1 {
		t.Fatalf("hash_table.resizes = %v, want 1", ht["resizes"])
	}
}

func TestEventHub_BroadcastWithNoClientsDoesNotBlock(t *testing.T) {
	mc := metrics.NewMetricsCollector()
	hub := NewEventHub(mc)

	// No connected clients: broadcast must be a no-op, not a block.
	hub.broadcast(Event{Type: "victim"})
}

func TestEventHub_DropsSlowClientInsteadOfBlocking(t *testing.T) {
	mc := metrics.NewMetricsCollector()
	hub := NewEventHub(mc)

	c := &client{send: make(chan Event)} // unbuffered, no reader draining it
	hub.addClient(c)

	for i := 0; i < 3; i++ {
		hub.broadcast(Event{Type: "victim"})
	}

	hub.mu.Lock()
	_, stillRegistered := hub.clients[c]
	hub.mu.Unlock()
	if stillRegistered {
		t.Fatalf("slow client should have been dropped")
	}
}
