package domain

import (
	"context"
	"time"
)

// Vitals is a single sample of host health data attached to a heartbeat.
type Vitals struct {
	HostUptime        time.Duration `json:"host_uptime"`
	CPUPercent        float64       `json:"cpu_percent"`
	MemoryUsedBytes   uint64        `json:"memory_used_bytes"`
	MemoryTotalBytes  uint64        `json:"memory_total_bytes"`
	MemoryUsedPercent float64       `json:"memory_used_percent"`
}

// Metrics is the snapshot pushed to the metrics endpoint after each
// heartbeat and once more, with Up false, on shutdown.
type Metrics struct {
	// Timestamp when the snapshot was taken.
	Timestamp time.Time

	// Hostname of the machine.
	Hostname string

	// Up indicates the service body is running.
	Up bool

	// Paused indicates the body is suspended between pause and continue
	// events.
	Paused bool

	// Beats is the number of heartbeats emitted since startup.
	Beats uint64

	// Events counts delivered lifecycle events by name.
	Events map[string]uint64

	// Vitals is the host sample for this beat; nil when collection failed
	// or the snapshot marks shutdown.
	Vitals *Vitals
}

// NewMetrics creates a Metrics snapshot for the given host.
func NewMetrics(hostname string) *Metrics {
	return &Metrics{
		Timestamp: time.Now(),
		Hostname:  hostname,
		Up:        true,
		Events:    make(map[string]uint64),
	}
}

// MetricsPusher defines the interface for pushing metrics to a remote endpoint.
type MetricsPusher interface {
	// Push sends metrics to the remote endpoint.
	Push(ctx context.Context, metrics *Metrics) error

	// Validate checks if the pusher is properly configured.
	Validate(ctx context.Context) error
}
