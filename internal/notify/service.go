package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"fieldwork/internal/logger"
	"fieldwork/internal/metrics"
)

const queueKey = "notifications"

// Event is one queued notification job.
type Event struct {
	UserID  int             `json:"user_id"`
	Kind    Kind            `json:"kind"`
	Data    json.RawMessage `json:"data"`
	Tries   int             `json:"tries"`
	Created time.Time       `json:"created"`
}

// Notifier is what the reconcilers call. Delivery is best-effort: a failed
// push is logged and swallowed, never surfaced to the caller's transaction.
type Notifier interface {
	Notify(ctx context.Context, userID int, kind Kind, payload interface{})
}

type Service struct {
	redis *redis.Client
	db    *sqlx.DB
}

func New(redisAddr string, db *sqlx.DB) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{Addr: redisAddr}),
		db:    db,
	}
}

// NewWithClient is used by tests to inject a mock redis client.
func NewWithClient(client *redis.Client, db *sqlx.DB) *Service {
	return &Service{redis: client, db: db}
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) Notify(ctx context.Context, userID int, kind Kind, payload interface{}) {
	if !kind.valid() {
		logger.Error("notify: unknown event kind", "kind", string(kind))
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("notify: failed to marshal payload", "kind", string(kind), "error", err.Error())
		metrics.RecordNotification(string(kind), "marshal_error")
		return
	}

	ev := Event{
		UserID:  userID,
		Kind:    kind,
		Data:    data,
		Created: time.Now(),
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordNotification(string(kind), "marshal_error")
		return
	}

	if err := s.redis.LPush(ctx, queueKey, string(raw)).Err(); err != nil {
		logger.Error("notify: failed to queue event", "kind", string(kind), "user_id", userID, "error", err.Error())
		metrics.RecordNotification(string(kind), "queue_error")
		return
	}

	metrics.RecordNotification(string(kind), "queued")
}

// Start drains the queue into the notifications table until ctx is done.
func (s *Service) Start(ctx context.Context) {
	logger.Info("notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
		logger.Error("notify: bad event data", "error", err.Error())
		return
	}

	ev.Tries++
	if err := s.deliver(ctx, ev); err != nil {
		logger.Error("notify: delivery failed", "kind", string(ev.Kind), "user_id", ev.UserID, "tries", ev.Tries, "error", err.Error())
		if ev.Tries < 3 {
			s.requeue(ctx, ev)
		}
		return
	}
}

func (s *Service) deliver(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, data)
		 VALUES ($1, $2, $3)`,
		ev.UserID, string(ev.Kind), []byte(ev.Data),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Service) requeue(ctx context.Context, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.redis.LPush(ctx, queueKey, string(raw)).Err(); err != nil {
		logger.Error("notify: requeue failed", "error", err.Error())
	}
}
