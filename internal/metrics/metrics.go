// Package metrics exposes Prometheus instrumentation for the node event
// loop, on an isolated registry so these metrics never collide with the
// global default registry. Each test gets its own Metrics instance.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Dusk node Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	GossipPublishedTotal *prometheus.CounterVec
	GossipReceivedTotal  *prometheus.CounterVec
	GossipDecodeErrors   *prometheus.CounterVec

	SyncMergesTotal   *prometheus.CounterVec
	SyncMergeRejected *prometheus.CounterVec

	RelayConnected       *prometheus.GaugeVec
	RelayBackoffSeconds  *prometheus.GaugeVec
	RelayReconnectsTotal *prometheus.CounterVec

	RendezvousRegisteredTotal *prometheus.CounterVec
	RendezvousDiscoveredTotal *prometheus.CounterVec
	RendezvousPendingQueued   *prometheus.GaugeVec

	MDNSDiscoveredTotal *prometheus.CounterVec

	DMDedupDropsTotal *prometheus.CounterVec

	ConnectedPeers *prometheus.GaugeVec

	StorageOpDurationSeconds *prometheus.HistogramVec

	BuildInfo *prometheus.GaugeVec
}

// New creates a Metrics instance with all collectors registered on an
// isolated registry.
func New(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		GossipPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_gossip_published_total", Help: "Total gossip messages published, by topic kind."},
			[]string{"topic_kind"},
		),
		GossipReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_gossip_received_total", Help: "Total gossip messages received, by variant."},
			[]string{"variant"},
		),
		GossipDecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_gossip_decode_errors_total", Help: "Total gossip messages dropped for failing to decode."},
			[]string{"topic_kind"},
		),
		SyncMergesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_sync_merges_total", Help: "Total successful CRDT document merges."},
			[]string{"community_id"},
		),
		SyncMergeRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_sync_merge_rejected_total", Help: "Total DocumentOffers rejected for an unknown community."},
			nil,
		),
		RelayConnected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dusk_relay_connected", Help: "1 if the relay reservation is currently active, else 0."},
			nil,
		),
		RelayBackoffSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dusk_relay_backoff_seconds", Help: "Current relay reconnect backoff duration in seconds."},
			nil,
		),
		RelayReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_relay_reconnects_total", Help: "Total relay reconnection attempts."},
			[]string{"result"},
		),
		RendezvousRegisteredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_rendezvous_registered_total", Help: "Total rendezvous namespace registrations issued."},
			nil,
		),
		RendezvousDiscoveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_rendezvous_discovered_total", Help: "Total peers discovered via rendezvous."},
			nil,
		),
		RendezvousPendingQueued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dusk_rendezvous_pending_queued", Help: "Number of rendezvous ops queued while the relay is down."},
			[]string{"op"},
		),
		MDNSDiscoveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_mdns_discovered_total", Help: "Total mDNS discovery events by result."},
			[]string{"result"},
		),
		DMDedupDropsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "dusk_dm_dedup_drops_total", Help: "Total direct messages dropped as duplicates (seen on both pair and inbox topics)."},
			nil,
		),
		ConnectedPeers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dusk_connected_peers", Help: "Number of currently connected peers."},
			nil,
		),
		StorageOpDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dusk_storage_op_duration_seconds",
				Help:    "Duration of storage operations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "dusk_info", Help: "Build information for the running dusk node."},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.GossipPublishedTotal,
		m.GossipReceivedTotal,
		m.GossipDecodeErrors,
		m.SyncMergesTotal,
		m.SyncMergeRejected,
		m.RelayConnected,
		m.RelayBackoffSeconds,
		m.RelayReconnectsTotal,
		m.RendezvousRegisteredTotal,
		m.RendezvousDiscoveredTotal,
		m.RendezvousPendingQueued,
		m.MDNSDiscoveredTotal,
		m.DMDedupDropsTotal,
		m.ConnectedPeers,
		m.StorageOpDurationSeconds,
		m.BuildInfo,
	)
	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)
	return m
}

// Handler returns an http.Handler that serves the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
