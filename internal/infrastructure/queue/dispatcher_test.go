package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/security-core/internal/core/domain"
	"github.com/opsdesk/security-core/internal/pkg/metrics"
)

type recordingPublisher struct {
	mu    sync.Mutex
	byIP  map[string][]string
	total int
	fail  bool
	block chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{byIP: make(map[string][]string)}
}

func (p *recordingPublisher) Publish(ctx context.Context, alert domain.SecurityAlert) (int64, error) {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return 0, errors.New("redis unavailable")
	}
	p.byIP[alert.IPAddress] = append(p.byIP[alert.IPAddress], alert.ID)
	p.total++
	return 1, nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func TestAlertDispatcher_PreservesPerIPOrder(t *testing.T) {
	pub := newRecordingPublisher()
	d := NewAlertDispatcher(3, pub, zerolog.Nop())
	d.Start(context.Background())

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"}
	for i := 0; i < 40; i++ {
		ip := ips[i%len(ips)]
		d.Notify(domain.SecurityAlert{ID: fmt.Sprintf("%s-%02d", ip, i), IPAddress: ip})
	}
	d.Stop()

	require.Equal(t, 40, pub.count())
	for _, ip := range ips {
		ids := pub.byIP[ip]
		require.Len(t, ids, 10)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i], "alerts for %s out of order", ip)
		}
	}
}

func TestAlertDispatcher_DropsWhenFull(t *testing.T) {
	pub := newRecordingPublisher()
	pub.block = make(chan struct{})
	d := NewAlertDispatcher(1, pub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	before := testutil.ToFloat64(metrics.AlertNotificationsDroppedTotal)

	// One alert is held by the blocked worker, channelBuffer more fill the queue.
	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+20; i++ {
			d.Notify(domain.SecurityAlert{ID: fmt.Sprint(i), IPAddress: "10.0.0.9"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	dropped := testutil.ToFloat64(metrics.AlertNotificationsDroppedTotal) - before
	assert.GreaterOrEqual(t, dropped, float64(19))

	close(pub.block)
	d.Stop()
}

func TestAlertDispatcher_NotifyAfterStop(t *testing.T) {
	pub := newRecordingPublisher()
	d := NewAlertDispatcher(2, pub, zerolog.Nop())
	d.Start(context.Background())
	d.Stop()
	d.Stop()

	before := testutil.ToFloat64(metrics.AlertNotificationsDroppedTotal)
	d.Notify(domain.SecurityAlert{ID: "late"})
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.AlertNotificationsDroppedTotal))
	assert.Zero(t, pub.count())
}

func TestAlertDispatcher_PublishErrorIsNotFatal(t *testing.T) {
	pub := newRecordingPublisher()
	pub.fail = true
	d := NewAlertDispatcher(1, pub, zerolog.Nop())
	d.Start(context.Background())

	d.Notify(domain.SecurityAlert{ID: "x", IPAddress: "10.0.0.1"})
	d.Notify(domain.SecurityAlert{ID: "y", IPAddress: "10.0.0.1"})
	d.Stop()

	assert.Zero(t, pub.count())
}
