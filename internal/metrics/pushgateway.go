// Package metrics provides implementations for pushing metrics to remote endpoints.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"

	"github.com/avkarenow/beacond/internal/domain"
	"github.com/avkarenow/beacond/internal/http"
	"github.com/avkarenow/beacond/pkg/version"
)

const (
	metricsJobName = "beacond"
	contentType    = "text/plain; charset=utf-8"
)

// PushgatewayClient pushes metrics to a Prometheus Pushgateway.
type PushgatewayClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// PushgatewayOption configures a PushgatewayClient.
type PushgatewayOption func(*PushgatewayClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PushgatewayOption {
	return func(p *PushgatewayClient) {
		p.logger = logger
	}
}

// NewPushgatewayClient creates a new PushgatewayClient.
func NewPushgatewayClient(url string, opts ...PushgatewayOption) *PushgatewayClient {
	p := &PushgatewayClient{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: http.NewClient(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Push sends a heartbeat snapshot to the Pushgateway.
func (p *PushgatewayClient) Push(ctx context.Context, metrics *domain.Metrics) error {
	body := p.buildMetrics(metrics)

	pushURL := fmt.Sprintf("%s/metrics/job/%s/instance/%s", p.url, metricsJobName, metrics.Hostname)

	p.logger.Debug("pushing metrics to pushgateway",
		"url", pushURL,
		"up", metrics.Up,
		"beats", metrics.Beats,
	)

	resp, err := p.httpClient.Post(ctx, pushURL, contentType, []byte(body))
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pushgateway returned status %d: %s", resp.StatusCode, string(resp.Body))
	}

	p.logger.Debug("metrics pushed successfully")
	return nil
}

// Validate checks if the Pushgateway is reachable.
func (p *PushgatewayClient) Validate(ctx context.Context) error {
	// Pushgateway typically has a /-/ready endpoint
	readyURL := fmt.Sprintf("%s/-/ready", p.url)

	if err := p.httpClient.CheckConnectivity(ctx, readyURL); err != nil {
		// Try the root URL as fallback
		if err2 := p.httpClient.CheckConnectivity(ctx, p.url); err2 != nil {
			return fmt.Errorf("pushgateway not reachable at %s: %w", p.url, err)
		}
	}

	return nil
}

// buildMetrics constructs the Prometheus text format metrics.
func (p *PushgatewayClient) buildMetrics(m *domain.Metrics) string {
	var b strings.Builder

	// Service up metric
	b.WriteString("# HELP beacond_up Service body is running\n")
	b.WriteString("# TYPE beacond_up gauge\n")
	if m.Up {
		b.WriteString("beacond_up 1\n")
	} else {
		b.WriteString("beacond_up 0\n")
	}
	b.WriteString("\n")

	b.WriteString("# HELP beacond_paused Heartbeats are suspended by a pause request\n")
	b.WriteString("# TYPE beacond_paused gauge\n")
	if m.Paused {
		b.WriteString("beacond_paused 1\n")
	} else {
		b.WriteString("beacond_paused 0\n")
	}
	b.WriteString("\n")

	// Info metric
	versionInfo := version.Get()
	b.WriteString("# HELP beacond_info Build information\n")
	b.WriteString("# TYPE beacond_info gauge\n")
	b.WriteString(fmt.Sprintf("beacond_info{version=%q,go_version=%q} 1\n",
		versionInfo.Version, runtime.Version()))
	b.WriteString("\n")

	b.WriteString("# HELP beacond_last_beat_timestamp_seconds Unix timestamp of the last heartbeat\n")
	b.WriteString("# TYPE beacond_last_beat_timestamp_seconds gauge\n")
	b.WriteString(fmt.Sprintf("beacond_last_beat_timestamp_seconds %d\n", m.Timestamp.Unix()))
	b.WriteString("\n")

	b.WriteString("# HELP beacond_heartbeats_total Heartbeats emitted since startup\n")
	b.WriteString("# TYPE beacond_heartbeats_total counter\n")
	b.WriteString(fmt.Sprintf("beacond_heartbeats_total %d\n", m.Beats))
	b.WriteString("\n")

	if len(m.Events) > 0 {
		b.WriteString("# HELP beacond_events_total Lifecycle events delivered since startup\n")
		b.WriteString("# TYPE beacond_events_total counter\n")

		// Sort for deterministic output
		names := make([]string, 0, len(m.Events))
		for name := range m.Events {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("beacond_events_total{event=%q} %d\n", name, m.Events[name]))
		}
		b.WriteString("\n")
	}

	if m.Vitals != nil {
		p.writeVitalsMetrics(&b, m.Vitals)
	}

	return b.String()
}

// writeVitalsMetrics writes the host health sample attached to a beat.
func (p *PushgatewayClient) writeVitalsMetrics(b *strings.Builder, v *domain.Vitals) {
	b.WriteString("# HELP beacond_host_uptime_seconds Host uptime\n")
	b.WriteString("# TYPE beacond_host_uptime_seconds gauge\n")
	b.WriteString("# HELP beacond_cpu_percent Host CPU utilization\n")
	b.WriteString("# TYPE beacond_cpu_percent gauge\n")
	b.WriteString("# HELP beacond_memory_used_bytes Host memory in use\n")
	b.WriteString("# TYPE beacond_memory_used_bytes gauge\n")
	b.WriteString("# HELP beacond_memory_total_bytes Host memory total\n")
	b.WriteString("# TYPE beacond_memory_total_bytes gauge\n")
	b.WriteString("# HELP beacond_memory_used_percent Host memory utilization\n")
	b.WriteString("# TYPE beacond_memory_used_percent gauge\n")
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("beacond_host_uptime_seconds %.0f\n", v.HostUptime.Seconds()))
	b.WriteString(fmt.Sprintf("beacond_cpu_percent %.2f\n", v.CPUPercent))
	b.WriteString(fmt.Sprintf("beacond_memory_used_bytes %d\n", v.MemoryUsedBytes))
	b.WriteString(fmt.Sprintf("beacond_memory_total_bytes %d\n", v.MemoryTotalBytes))
	b.WriteString(fmt.Sprintf("beacond_memory_used_percent %.2f\n", v.MemoryUsedPercent))
}

// Ensure PushgatewayClient implements domain.MetricsPusher.
var _ domain.MetricsPusher = (*PushgatewayClient)(nil)
