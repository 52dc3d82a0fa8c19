package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultCheckInterval replaces non-positive intervals.
const DefaultCheckInterval = 15 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthWatcher pings the storage on a ticker and publishes the outcome on
// the health server.
type HealthWatcher struct {
	db           pinger
	health       *health.Server
	interval     time.Duration
	onChange     func(up bool)
	errorChannel chan error
}

// WatcherOption configures NewHealthWatcher.
type WatcherOption func(*HealthWatcher)

// WithStatusCallback is called with the result of every ping.
func WithStatusCallback(callback func(up bool)) WatcherOption {
	return func(w *HealthWatcher) {
		w.onChange = callback
	}
}

func NewHealthWatcher(
	db pinger,
	healthServer *health.Server,
	interval time.Duration,
	opts ...WatcherOption,
) *HealthWatcher {
	watcher := &HealthWatcher{
		db:           db,
		health:       healthServer,
		interval:     interval,
		onChange:     func(bool) {},
		errorChannel: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(watcher)
	}
	if watcher.interval <= 0 {
		watcher.interval = DefaultCheckInterval
	}

	return watcher
}

// ListenErrors passes failed pings to callback.
func (w *HealthWatcher) ListenErrors(callback func(error)) {
	go func() {
		for err := range w.errorChannel {
			callback(err)
		}
	}()
}

// Check pings the storage once and updates the serving status.
func (w *HealthWatcher) Check(ctx context.Context) {
	err := w.db.Ping(ctx)

	servingStatus := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		servingStatus = healthpb.HealthCheckResponse_NOT_SERVING
		select {
		case w.errorChannel <- err:
		default:
		}
	}

	w.health.SetServingStatus("", servingStatus)
	w.health.SetServingStatus(ServiceName, servingStatus)
	w.onChange(err == nil)
}

// Run checks right away and then on every tick until ctx is done. The health
// server is switched to NOT_SERVING on exit.
func (w *HealthWatcher) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		defer close(w.errorChannel)

		w.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				w.health.Shutdown()
				return
			case <-ticker.C:
				w.Check(ctx)
			}
		}
	}()
}
