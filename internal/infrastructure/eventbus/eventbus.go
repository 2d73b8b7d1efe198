// Package eventbus is the Event Bus Adapter of spec.md §4.5. It
// publishes on the three live channel conventions (per-session,
// per-user inbox, reader presence) and, in the same gorm transaction
// as the business mutation that produced the event, writes an
// OutboxMessage row — the teacher's outbox pattern
// (internal/job/outbox_sender.go in the reference backend), generalized
// from a single Kafka topic into "one row per published event,
// replayed by a background drainer" so that delivery to the external
// pub/sub bus survives process restarts and is at-least-once even if
// the live publish attempt below fails outright.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ChannelReaderStatus = "readers:status"
)

// pendingPublishKey is where Publish queues live-publish jobs on the
// tx instance passed to it, via gorm's InstanceSet/InstanceGet. Reading
// it back after the enclosing db.Transaction call returns costs no
// round trip — it's an in-memory lookup on the *gorm.DB session tied to
// that transaction.
const pendingPublishKey = "eventbus:pending_publishes"

type pendingPublish struct {
	channel string
	payload []byte
}

// SessionChannel returns the per-session channel name for spec.md §4.5.
func SessionChannel(sessionID string) string {
	return fmt.Sprintf("reading:%s", sessionID)
}

// UserChannel returns the per-user notification inbox channel name.
func UserChannel(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

// envelope is the wire shape published on every channel: a type tag
// plus an opaque payload, matching the "type-tagged payload" language
// of spec.md §4.5.
type envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Bus is the live (best-effort, low-latency) half of the adapter. The
// durable half is the OutboxMessage row written alongside every
// Publish call, drained by OutboxSender (internal/job).
type Bus struct {
	redis *redis.Client
}

// New builds a Bus around a Redis client standing in for the external
// realtime pub/sub service's publish API — the core only consumes a
// narrow publish interface from that collaborator (spec.md §1), and
// this is where that narrow interface is implemented.
func New(redisClient *redis.Client) *Bus {
	return &Bus{redis: redisClient}
}

// Publish writes the durable outbox row inside tx (so it commits
// atomically with whatever business mutation produced the event) and
// queues the live best-effort publish on tx, rather than firing it
// immediately: tx is still uncommitted here, and an event for a
// mutation that later rolls back must never reach a live subscriber.
// Call Flush(tx) once, after the enclosing db.Transaction call returns
// a nil error, to actually dispatch the queued live publishes.
func (b *Bus) Publish(ctx context.Context, tx *gorm.DB, channel, eventType string, payload any) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("eventbus: marshal payload: %w", err)
	}

	env := envelope{Type: eventType, Payload: payloadBytes, Timestamp: time.Now()}
	envBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("eventbus: marshal envelope: %w", err)
	}

	outboxMsg := &model.OutboxMessage{
		MessageKey: uuid.NewString(),
		Channel:    channel,
		Payload:    string(envBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := tx.WithContext(ctx).Create(outboxMsg).Error; err != nil {
		return fmt.Errorf("eventbus: write outbox row: %w", err)
	}

	queue, _ := tx.InstanceGet(pendingPublishKey)
	jobs, _ := queue.([]pendingPublish)
	jobs = append(jobs, pendingPublish{channel: channel, payload: envBytes})
	tx.InstanceSet(pendingPublishKey, jobs)

	return nil
}

// Flush dispatches every live best-effort publish queued by Publish
// calls made against tx. Callers invoke this exactly once, immediately
// after the db.Transaction call that produced tx returns nil — never
// on the error path, since a rolled-back mutation has no event to
// publish. A no-op if nothing was queued.
func (b *Bus) Flush(tx *gorm.DB) {
	if tx == nil {
		return
	}
	queue, ok := tx.InstanceGet(pendingPublishKey)
	if !ok {
		return
	}
	jobs, _ := queue.([]pendingPublish)
	for _, job := range jobs {
		go b.publishLiveBestEffort(job.channel, job.payload)
	}
}

// publishLiveBestEffort is deliberately detached from the caller's
// request context: by the time Flush calls this, the outbox row has
// already committed, so a slow or cancelled caller must never block on
// it, and ctx.Done() on the inbound request is not a reason to skip
// the retry backoff window.
func (b *Bus) publishLiveBestEffort(channel string, payload []byte) {
	backoff := 250 * time.Millisecond
	const maxRetries = 5
	const maxAttempts = 1 + maxRetries

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := b.redis.Publish(ctx, channel, payload).Err()
		cancel()
		if err == nil {
			return
		}
		if attempt == maxAttempts {
			log.Printf("[eventbus] live publish to %s failed after %d attempts: %v", channel, attempt, err)
			return
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}
