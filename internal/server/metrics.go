package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-occupancy/internal/notify"
	"parking-occupancy/internal/parking"
)

// slotCollector reports occupancy from the snapshot cache at scrape time.
type slotCollector struct {
	cache *parking.SnapshotCache
	hub   *notify.Hub

	total     *prometheus.Desc
	occupied  *prometheus.Desc
	free      *prometheus.Desc
	wsClients *prometheus.Desc
}

func newSlotCollector(cache *parking.SnapshotCache, hub *notify.Hub) *slotCollector {
	return &slotCollector{
		cache:     cache,
		hub:       hub,
		total:     prometheus.NewDesc("parking_slots_total", "Slots in the current snapshot.", nil, nil),
		occupied:  prometheus.NewDesc("parking_slots_occupied", "Occupied slots in the current snapshot.", nil, nil),
		free:      prometheus.NewDesc("parking_slots_free", "Free slots in the current snapshot.", nil, nil),
		wsClients: prometheus.NewDesc("parking_notification_clients", "Connected notification websocket clients.", nil, nil),
	}
}

func (c *slotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.occupied
	ch <- c.free
	ch <- c.wsClients
}

func (c *slotCollector) Collect(ch chan<- prometheus.Metric) {
	slots := c.cache.Current()
	occupied := len(parking.OccupiedSlots(slots))

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(len(slots)))
	ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(occupied))
	ch <- prometheus.MustNewConstMetric(c.free, prometheus.GaugeValue, float64(len(slots)-occupied))

	clients := 0
	if c.hub != nil {
		clients = c.hub.Clients()
	}
	ch <- prometheus.MustNewConstMetric(c.wsClients, prometheus.GaugeValue, float64(clients))
}

func newRegistry(cache *parking.SnapshotCache, hub *notify.Hub) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newSlotCollector(cache, hub),
	)
	return reg
}
