// Package telemetry exposes the provisioning service counters as Prometheus
// metrics. The gauges are updated at the same mutation points that emit
// METRICS_AVAILABLE events, so the two views never diverge.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/virtustack/virtustack/internal/services/streaming"
)

// Metrics holds the Prometheus instruments for one service instance.
type Metrics struct {
	HostsTotal     prometheus.Gauge
	HostsAvailable prometheus.Gauge

	VmsSubmitted   prometheus.Gauge
	VmsQueued      prometheus.Gauge
	VmsRunning     prometheus.Gauge
	VmsFinished    prometheus.Gauge
	VmsUnscheduled prometheus.Gauge
}

// New creates and registers the service metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HostsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_hosts_total",
			Help: "Number of registered hypervisor hosts",
		}),
		HostsAvailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_hosts_available",
			Help: "Number of hosts currently in the UP state",
		}),
		VmsSubmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_vms_submitted_total",
			Help: "Total number of VM launch requests submitted",
		}),
		VmsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_vms_queued",
			Help: "Number of VM launch requests waiting in the queue",
		}),
		VmsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_vms_running",
			Help: "Number of VMs currently placed on a host",
		}),
		VmsFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_vms_finished_total",
			Help: "Total number of VMs that reached SHUTOFF",
		}),
		VmsUnscheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "virtustack_vms_unscheduled_total",
			Help: "Total number of VM launch requests rejected as infeasible",
		}),
	}

	reg.MustRegister(
		m.HostsTotal,
		m.HostsAvailable,
		m.VmsSubmitted,
		m.VmsQueued,
		m.VmsRunning,
		m.VmsFinished,
		m.VmsUnscheduled,
	)
	return m
}

// Observe applies a counter snapshot to the gauges.
func (m *Metrics) Observe(snapshot streaming.Metrics) {
	m.HostsTotal.Set(float64(snapshot.HostCount))
	m.HostsAvailable.Set(float64(snapshot.AvailableHostCount))
	m.VmsSubmitted.Set(float64(snapshot.Submitted))
	m.VmsQueued.Set(float64(snapshot.Queued))
	m.VmsRunning.Set(float64(snapshot.Running))
	m.VmsFinished.Set(float64(snapshot.Finished))
	m.VmsUnscheduled.Set(float64(snapshot.Unscheduled))
}
