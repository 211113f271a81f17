package events

import (
	"fmt"
	"time"

	"github.com/dripiq/dripiq-lead-services/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Fixed synthetic identifiers so downstream consumers can recognise and
// discard test traffic.
var (
	testTenantID = uuid.MustParse("00000000-0000-4000-a000-000000000001")
	testUserID   = uuid.MustParse("00000000-0000-4000-a000-000000000002")
)

const testSource = "lead-services.test-publisher"

// TestPublisher emits a throwaway message on a fixed cadence so queue
// connectivity can be watched end to end in pre-production environments.
// It is only ever started when pulsar.testPublisher.enabled is set.
type TestPublisher struct {
	notifier Notifier
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewTestPublisher(notifier Notifier, interval time.Duration) *TestPublisher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &TestPublisher{
		notifier: notifier,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the publishing loop in its own goroutine.
func (p *TestPublisher) Start() {
	go p.run()
	log.Info().Dur("interval", p.interval).Msg("test publisher started")
}

func (p *TestPublisher) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.publishOnce(time.Now().UTC())
		case <-p.stopCh:
			return
		}
	}
}

// publishOnce sends a single test event. Failures are logged and swallowed,
// one bad publish must not stop the loop.
func (p *TestPublisher) publishOnce(now time.Time) {
	event := models.Event{
		TenantID:   testTenantID,
		SubjectID:  testUserID,
		Action:     models.ActionTestMessage,
		Source:     testSource,
		OccurredAt: now,
		Data: map[string]string{
			"message": fmt.Sprintf("test message produced at %s", now.Format(time.RFC3339)),
		},
	}

	if err := p.notifier.Publish(event); err != nil {
		log.Error().Err(err).Msg("test publisher failed to publish")
	}
}

// Stop halts the loop and waits for it to drain.
func (p *TestPublisher) Stop() {
	close(p.stopCh)
	<-p.doneCh
	log.Info().Msg("test publisher stopped")
}
