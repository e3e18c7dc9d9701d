package stats

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunarisgames/netsession/engine/nslog"
)

// Session-level counters and gauges. Registered on the default registry and
// exported by ServeHTTP when the session config enables the endpoint.
var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "messages_sent_total",
		Help:      "Router messages sent by the local node",
	})
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "messages_received_total",
		Help:      "Router messages dispatched on the local node",
	})
	EntitiesSpawned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "entities_spawned_total",
		Help:      "Entities spawned by the host",
	})
	PlayersSpawned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "players_spawned_total",
		Help:      "Player entities spawned by the host",
	})
	SpawnQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "netsession",
		Name:      "spawn_queue_depth",
		Help:      "Spawn requests waiting in the queue",
	})
	PhaseTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "phase_transitions_total",
		Help:      "Initialization phase transitions",
	})
	ScenesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "scenes_loaded_total",
		Help:      "Completed scene transitions",
	})
	VarWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "var_writes_total",
		Help:      "Accepted replicated variable writes",
	})
	VarWritesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netsession",
		Name:      "var_writes_dropped_total",
		Help:      "Replicated variable writes dropped by rate limiting or permission",
	})
)

// ServeHTTP exposes /metrics on the given address in a background goroutine
func ServeHTTP(ip string, port int) {
	addr := fmt.Sprintf("%s:%d", ip, port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		nslog.Infof("stats: serving metrics on http://%s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			nslog.Errorf("stats: metrics server: %v", err)
		}
	}()
}
