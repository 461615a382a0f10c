package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Notice is a delivered reminder waiting for the patient to pick it up.
type Notice struct {
	PrescriptionID string    `json:"prescription_id"`
	MedicationName string    `json:"medication_name"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Inbox holds undelivered notices per patient. Drain returns them oldest
// first and empties the inbox.
type Inbox interface {
	Push(ctx context.Context, patientID string, n Notice) error
	Drain(ctx context.Context, patientID string) ([]Notice, error)
}

const defaultInboxTTL = 7 * 24 * time.Hour

// RedisInbox keeps notices in a list under reminder_inbox:<patient id>.
type RedisInbox struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisInbox(client *redis.Client, ttl time.Duration) *RedisInbox {
	if client == nil {
		panic("reminders: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultInboxTTL
	}
	return &RedisInbox{redis: client, ttl: ttl, tracer: otel.Tracer("medcare.internal.reminders.inbox")}
}

func inboxKey(patientID string) string {
	return fmt.Sprintf("reminder_inbox:%s", patientID)
}

func (i *RedisInbox) Push(ctx context.Context, patientID string, n Notice) error {
	ctx, span := i.tracer.Start(ctx, "reminders.push")
	defer span.End()

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("reminders: failed to marshal notice: %w", err)
	}
	key := inboxKey(patientID)
	pipe := i.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, i.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reminders: failed to push notice: %w", err)
	}
	return nil
}

func (i *RedisInbox) Drain(ctx context.Context, patientID string) ([]Notice, error) {
	ctx, span := i.tracer.Start(ctx, "reminders.drain")
	defer span.End()

	key := inboxKey(patientID)
	pipe := i.redis.TxPipeline()
	items := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reminders: failed to drain inbox: %w", err)
	}

	raw := items.Val()
	out := make([]Notice, 0, len(raw))
	for _, item := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("reminders: failed to decode notice: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MemoryInbox is a process-local Inbox.
type MemoryInbox struct {
	mu      sync.Mutex
	notices map[string][]Notice
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{notices: make(map[string][]Notice)}
}

func (i *MemoryInbox) Push(_ context.Context, patientID string, n Notice) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.notices[patientID] = append(i.notices[patientID], n)
	return nil
}

func (i *MemoryInbox) Drain(_ context.Context, patientID string) ([]Notice, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.notices[patientID]
	delete(i.notices, patientID)
	return out, nil
}
