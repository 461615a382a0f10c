package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultStateTTL = 24 * time.Hour

// RedisStateStore keeps one JSON document per patient under chat_state:<id>.
type RedisStateStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStateStore(client *redis.Client, ttl time.Duration) *RedisStateStore {
	if client == nil {
		panic("chatbot: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStateStore{redis: client, ttl: ttl, tracer: otel.Tracer("medcare.internal.chatbot.state")}
}

func stateKey(patientID string) string {
	return fmt.Sprintf("chat_state:%s", patientID)
}

func (s *RedisStateStore) Load(ctx context.Context, patientID string) (*State, error) {
	ctx, span := s.tracer.Start(ctx, "chatbot.load_state")
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(patientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: failed to load state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chatbot: failed to decode state: %w", err)
	}
	return &state, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state *State) error {
	ctx, span := s.tracer.Start(ctx, "chatbot.save_state")
	defer span.End()

	data, err := json.Marshal(state)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(state.PatientID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chatbot: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, patientID string) error {
	if err := s.redis.Del(ctx, stateKey(patientID)).Err(); err != nil {
		return fmt.Errorf("chatbot: failed to delete state: %w", err)
	}
	return nil
}

// MemoryStateStore is a process-local StateStore for development and tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]State)}
}

func (s *MemoryStateStore) Load(_ context.Context, patientID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[patientID]
	if !ok {
		return nil, nil
	}
	return cloneState(state), nil
}

func (s *MemoryStateStore) Save(_ context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.PatientID] = *cloneState(*state)
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, patientID)
	return nil
}

func cloneState(s State) *State {
	out := s
	out.Doctors = append([]DoctorRef(nil), s.Doctors...)
	out.Prescriptions = append([]PendingPrescription(nil), s.Prescriptions...)
	if s.SelectedDoctor != nil {
		d := *s.SelectedDoctor
		out.SelectedDoctor = &d
	}
	return &out
}
