package chatbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// ErrLockTimeout is returned when a patient's conversation stays locked for
// longer than the caller is willing to wait.
var ErrLockTimeout = errors.New("chatbot: conversation is busy")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker serializes turns across API replicas with SET NX locks.
type RedisLocker struct {
	redis    *redis.Client
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	// renew is how often a held lock is extended back to ttl.
	renew  time.Duration
	logger *logging.Logger
}

func NewRedisLocker(client *redis.Client, logger *logging.Logger) *RedisLocker {
	if client == nil {
		panic("chatbot: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLocker{
		redis:    client,
		ttl:      30 * time.Second,
		wait:     10 * time.Second,
		interval: 50 * time.Millisecond,
		renew:    10 * time.Second,
		logger:   logger,
	}
}

func lockKey(patientID string) string {
	return fmt.Sprintf("chat_lock:%s", patientID)
}

func (l *RedisLocker) Lock(ctx context.Context, patientID string) (func(), error) {
	key := lockKey(patientID)
	token := uuid.NewString()
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("chatbot: acquire lock: %w", err)
		}
		if ok {
			stop := make(chan struct{})
			done := make(chan struct{})
			go l.keepAlive(context.WithoutCancel(ctx), key, token, patientID, stop, done)

			var once sync.Once
			return func() {
				once.Do(func() {
					close(stop)
					<-done
					// The turn's context may already be cancelled.
					releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
					defer cancel()
					if err := releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err(); err != nil {
						l.logger.Warn("failed to release chat lock", "patient_id", patientID, "error", err)
					}
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-time.After(l.interval):
		}
	}
}

// keepAlive extends the lock every renew interval until stop is closed or
// the lock is found to belong to someone else.
func (l *RedisLocker) keepAlive(ctx context.Context, key, token, patientID string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if l.renew <= 0 {
		return
	}
	ticker := time.NewTicker(l.renew)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		renewCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		held, err := renewScript.Run(renewCtx, l.redis, []string{key}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			l.logger.Warn("failed to renew chat lock", "patient_id", patientID, "error", err)
			continue
		}
		if held == 0 {
			l.logger.Warn("chat lock lost before the turn finished", "patient_id", patientID)
			return
		}
	}
}

// MemoryLocker is an in-process keyed mutex.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyedLock)}
}

func (l *MemoryLocker) Lock(ctx context.Context, patientID string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[patientID]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[patientID] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(patientID, kl, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(patientID, kl, true) }) }, nil
}

func (l *MemoryLocker) release(patientID string, kl *keyedLock, held bool) {
	if held {
		<-kl.ch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, patientID)
	}
}
