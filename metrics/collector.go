package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gplotter/standalone"
)

var _ standalone.Observer = (*Collector)(nil)

// Collector records plotter activity as Prometheus counters. It owns its
// registry so several collectors can live in one process (and in tests).
type Collector struct {
	registry *prometheus.Registry

	commands *prometheus.CounterVec
	errors   *prometheus.CounterVec
	steps    *prometheus.CounterVec
	endstops *prometheus.CounterVec
	statuses prometheus.Counter
	banners  prometheus.Counter
}

// NewCollector creates and registers the plotter counters
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gplotter_commands_total",
				Help: "Total number of command lines handled",
			},
			[]string{"command"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gplotter_command_errors_total",
				Help: "Total number of commands that failed",
			},
			[]string{"command"},
		),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gplotter_motor_steps_total",
				Help: "Total number of steps taken per motor",
			},
			[]string{"motor"},
		),
		endstops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gplotter_endstop_hits_total",
				Help: "Total number of moves stopped by an endstop",
			},
			[]string{"motor"},
		),
		statuses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gplotter_status_reports_total",
			Help: "Total number of status lines sent",
		}),
		banners: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gplotter_banners_total",
			Help: "Total number of client handshakes answered with the banner",
		}),
	}
	c.registry.MustRegister(c.commands, c.errors, c.steps, c.endstops, c.statuses, c.banners)
	return c
}

// Registry exposes the registry the counters live in
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) CommandHandled(name string, err error) {
	c.commands.WithLabelValues(name).Inc()
	if err != nil {
		c.errors.WithLabelValues(name).Inc()
	}
}

func (c *Collector) StepsMoved(motor string, steps int) {
	if steps > 0 {
		c.steps.WithLabelValues(motor).Add(float64(steps))
	}
}

func (c *Collector) EndstopHit(motor string) {
	c.endstops.WithLabelValues(motor).Inc()
}

func (c *Collector) StatusReported() {
	c.statuses.Inc()
}

func (c *Collector) BannerSent() {
	c.banners.Inc()
}
