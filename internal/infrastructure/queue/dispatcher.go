package queue

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 2 * time.Second
)

// Publisher delivers one alert to the outside world.
type Publisher interface {
	Publish(ctx context.Context, alert domain.SecurityAlert) (int64, error)
}

// AlertDispatcher implements ports.AlertNotifier. Alerts are routed to a
// fixed set of workers by source IP, so alerts about one client are
// published in the order they were raised. Notify never blocks: when the
// target worker's buffer is full the alert is dropped and counted.
type AlertDispatcher struct {
	workers   []chan domain.SecurityAlert
	publisher Publisher
	log       zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewAlertDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewAlertDispatcher(numWorkers int, publisher Publisher, log zerolog.Logger) *AlertDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &AlertDispatcher{
		workers:   make([]chan domain.SecurityAlert, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.SecurityAlert, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled
// or after Stop has drained their queues.
func (d *AlertDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Stop rejects further alerts and waits for queued ones to be published.
func (d *AlertDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *AlertDispatcher) Notify(alert domain.SecurityAlert) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.drop(alert, "dispatcher stopped")
		return
	}

	select {
	case d.workers[d.shardIndex(alert.IPAddress)] <- alert:
	default:
		d.drop(alert, "queue full")
	}
}

func (d *AlertDispatcher) drop(alert domain.SecurityAlert, reason string) {
	metrics.AlertNotificationsDroppedTotal.Inc()
	d.log.Warn().
		Str("alert_id", alert.ID).
		Str("type", string(alert.Type)).
		Str("reason", reason).
		Msg("alert notification dropped")
}

// shardIndex maps an IP address deterministically to a worker index.
func (d *AlertDispatcher) shardIndex(ip string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ip))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *AlertDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.SecurityAlert) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-ch:
			if !ok {
				return
			}
			d.publish(ctx, id, alert)
		}
	}
}

func (d *AlertDispatcher) publish(ctx context.Context, worker int, alert domain.SecurityAlert) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	receivers, err := d.publisher.Publish(ctx, alert)
	if err != nil {
		d.log.Error().Err(err).
			Str("alert_id", alert.ID).
			Int("worker_id", worker).
			Msg("alert publish failed")
		return
	}
	d.log.Debug().
		Str("alert_id", alert.ID).
		Int64("receivers", receivers).
		Int("worker_id", worker).
		Msg("alert published")
}
