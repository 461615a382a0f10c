package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medcare-assistant/internal/llm"
)

const defaultHistoryTurns = 20

// RedisHistory keeps the last maxTurns exchanges of a patient in a Redis
// list under chat_history:<id>.
type RedisHistory struct {
	redis       *redis.Client
	maxMessages int64
	ttl         time.Duration
	tracer      trace.Tracer
}

func NewRedisHistory(client *redis.Client, maxTurns int, ttl time.Duration) *RedisHistory {
	if client == nil {
		panic("chatbot: redis client cannot be nil")
	}
	if maxTurns <= 0 {
		maxTurns = defaultHistoryTurns
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisHistory{
		redis:       client,
		maxMessages: int64(maxTurns) * 2,
		ttl:         ttl,
		tracer:      otel.Tracer("medcare.internal.chatbot.history"),
	}
}

func historyKey(patientID string) string {
	return fmt.Sprintf("chat_history:%s", patientID)
}

func (h *RedisHistory) Load(ctx context.Context, patientID string) ([]llm.Message, error) {
	ctx, span := h.tracer.Start(ctx, "chatbot.load_history")
	defer span.End()

	raw, err := h.redis.LRange(ctx, historyKey(patientID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: failed to load history: %w", err)
	}
	out := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chatbot: failed to decode history: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (h *RedisHistory) Append(ctx context.Context, patientID string, msgs ...llm.Message) error {
	ctx, span := h.tracer.Start(ctx, "chatbot.append_history")
	defer span.End()

	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("chatbot: failed to marshal history: %w", err)
		}
		values = append(values, data)
	}

	key := historyKey(patientID)
	pipe := h.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -h.maxMessages, -1)
	pipe.Expire(ctx, key, h.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to persist history: %w", err)
	}
	return nil
}

func (h *RedisHistory) Clear(ctx context.Context, patientID string) error {
	if err := h.redis.Del(ctx, historyKey(patientID)).Err(); err != nil {
		return fmt.Errorf("chatbot: failed to clear history: %w", err)
	}
	return nil
}

// MemoryHistory is a process-local History.
type MemoryHistory struct {
	mu          sync.Mutex
	maxMessages int
	items       map[string][]llm.Message
}

func NewMemoryHistory(maxTurns int) *MemoryHistory {
	if maxTurns <= 0 {
		maxTurns = defaultHistoryTurns
	}
	return &MemoryHistory{maxMessages: maxTurns * 2, items: make(map[string][]llm.Message)}
}

func (h *MemoryHistory) Load(_ context.Context, patientID string) ([]llm.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]llm.Message(nil), h.items[patientID]...), nil
}

func (h *MemoryHistory) Append(_ context.Context, patientID string, msgs ...llm.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := append(h.items[patientID], msgs...)
	if len(list) > h.maxMessages {
		list = append([]llm.Message(nil), list[len(list)-h.maxMessages:]...)
	}
	h.items[patientID] = list
	return nil
}

func (h *MemoryHistory) Clear(_ context.Context, patientID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.items, patientID)
	return nil
}
