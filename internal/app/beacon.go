// Package app provides the core application logic.
package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/avkarenow/beacond/internal/config"
	"github.com/avkarenow/beacond/internal/domain"
	"github.com/avkarenow/beacond/internal/lifecycle"
)

// finalPushTimeout bounds the down-marker push during shutdown.
const finalPushTimeout = 30 * time.Second

// Beacon emits periodic heartbeats to the monitoring backends and reacts to
// lifecycle events. Its Run method is the body handed to lifecycle.Run.
type Beacon struct {
	config   *config.Config
	clock    clock.Clock
	pusher   domain.MetricsPusher
	notifier domain.Notifier
	vitals   VitalsCollector
	logger   *slog.Logger
	hostname string
	maxBeats uint64
}

// BeaconOption configures a Beacon.
type BeaconOption func(*Beacon)

// WithClock overrides the wall clock, used by tests to drive ticks.
func WithClock(c clock.Clock) BeaconOption {
	return func(b *Beacon) {
		b.clock = c
	}
}

// WithMetricsPusher sets the metrics destination.
func WithMetricsPusher(pusher domain.MetricsPusher) BeaconOption {
	return func(b *Beacon) {
		b.pusher = pusher
	}
}

// WithNotifier sets the notification destination.
func WithNotifier(notifier domain.Notifier) BeaconOption {
	return func(b *Beacon) {
		b.notifier = notifier
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BeaconOption {
	return func(b *Beacon) {
		b.logger = logger
	}
}

// WithVitalsCollector overrides how host vitals are sampled.
func WithVitalsCollector(collector VitalsCollector) BeaconOption {
	return func(b *Beacon) {
		b.vitals = collector
	}
}

// WithMaxBeats stops the beacon after the given number of heartbeats.
// Zero means run until told to stop.
func WithMaxBeats(n uint64) BeaconOption {
	return func(b *Beacon) {
		b.maxBeats = n
	}
}

// NewBeacon creates a beacon from the given configuration.
func NewBeacon(cfg *config.Config, opts ...BeaconOption) *Beacon {
	hostname, _ := os.Hostname()

	b := &Beacon{
		config:   cfg,
		clock:    clock.New(),
		notifier: &domain.NopNotifier{},
		vitals:   CollectVitals,
		logger:   slog.Default(),
		hostname: hostname,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Run beats once at startup and then on every interval tick until a stop
// event arrives. Pause events suppress beats without stopping the ticker;
// a continue event resumes with an immediate beat. The last push before
// returning marks the service as down.
func (b *Beacon) Run(events <-chan lifecycle.Event, sender lifecycle.Sender, _ []string, interactive bool) error {
	ctx := context.Background()

	b.logger.Info("beacon started",
		"host", b.hostname,
		"interval", b.config.Beacon.Interval,
		"interactive", interactive,
	)
	b.notify(ctx, domain.StartedNotification(b.config.Service.Name, b.hostname))

	var (
		beats  uint64
		paused bool
	)
	counts := make(map[string]uint64)

	beat := func() {
		beats++
		b.emitBeat(ctx, beats, paused, counts)
		if b.maxBeats > 0 && beats >= b.maxBeats {
			b.logger.Info("beat limit reached", "beats", beats)
			sender.Send(lifecycle.EventStop)
		}
	}

	beat()

	ticker := b.clock.Ticker(b.config.Beacon.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if paused {
				b.logger.Debug("paused, skipping beat")
				continue
			}
			beat()

		case ev, ok := <-events:
			if !ok {
				b.shutdown(beats, paused, counts)
				return nil
			}
			counts[ev.String()]++

			switch ev {
			case lifecycle.EventStop:
				b.logger.Info("stop event received")
				b.shutdown(beats, paused, counts)
				return nil

			case lifecycle.EventPause:
				if paused {
					continue
				}
				paused = true
				b.logger.Info("pause event received")
				b.notify(ctx, domain.PausedNotification(b.config.Service.Name, b.hostname))
				b.push(ctx, b.snapshot(beats, paused, counts, nil))

			case lifecycle.EventContinue:
				if !paused {
					continue
				}
				paused = false
				b.logger.Info("continue event received")
				b.notify(ctx, domain.ResumedNotification(b.config.Service.Name, b.hostname))
				beat()
			}
		}
	}
}

// emitBeat samples the host and pushes one heartbeat.
func (b *Beacon) emitBeat(ctx context.Context, beats uint64, paused bool, counts map[string]uint64) {
	vitals, err := b.vitals(ctx, b.config.Beacon.CPUSample)
	if err != nil {
		b.logger.Warn("vitals collection failed", "error", err)
	}

	attrs := []any{"beat", beats}
	if vitals != nil {
		attrs = append(attrs,
			"cpu_percent", vitals.CPUPercent,
			"memory_used_percent", vitals.MemoryUsedPercent,
		)
	}
	b.logger.Info("heartbeat", attrs...)

	b.push(ctx, b.snapshot(beats, paused, counts, vitals))
}

// shutdown sends the stopped notification and pushes the down marker. The
// push runs on a fresh bounded context so it cannot hang shutdown.
func (b *Beacon) shutdown(beats uint64, paused bool, counts map[string]uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), finalPushTimeout)
	defer cancel()

	b.notify(ctx, domain.StoppedNotification(b.config.Service.Name, b.hostname))

	m := b.snapshot(beats, paused, counts, nil)
	m.Up = false
	b.push(ctx, m)

	b.logger.Info("beacon stopped", "beats", beats)
}

// snapshot assembles the metrics payload for one push.
func (b *Beacon) snapshot(beats uint64, paused bool, counts map[string]uint64, vitals *domain.Vitals) *domain.Metrics {
	m := domain.NewMetrics(b.hostname)
	m.Paused = paused
	m.Beats = beats
	for name, n := range counts {
		m.Events[name] = n
	}
	m.Vitals = vitals
	return m
}

func (b *Beacon) push(ctx context.Context, m *domain.Metrics) {
	if b.pusher == nil {
		return
	}
	if err := b.pusher.Push(ctx, m); err != nil {
		b.logger.Error("failed to push metrics", "error", err)
	}
}

func (b *Beacon) notify(ctx context.Context, n *domain.Notification) {
	if b.notifier == nil || !b.shouldNotify(n.Level) {
		return
	}
	if err := b.notifier.Notify(ctx, n); err != nil {
		b.logger.Warn("failed to send notification", "error", err, "title", n.Title)
	}
}

// shouldNotify applies the configured notification level.
func (b *Beacon) shouldNotify(level domain.NotificationLevel) bool {
	switch b.config.Apprise.Notify {
	case config.NotifyAlways:
		return true
	case config.NotifyWarning:
		return level == domain.NotificationLevelWarning || level == domain.NotificationLevelError
	default:
		return level == domain.NotificationLevelError
	}
}
