package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
)

// Service tails the order lifecycle topics and keeps the Redis status cache
// warm, so status reads don't have to hit Postgres.
type Service struct {
	Redis *redis.Client
	Log   *slog.Logger
}

// HandleEvent is wired as the consumer handler for both lifecycle topics.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// Dedup on event id: the producer is at-least-once.
	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	var (
		userID  string
		orderID string
		status  orders.Status
		created bool
	)
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		userID, orderID, status, created = p.UserID, p.OrderID, orders.StatusPending, true
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		userID, orderID, status = p.UserID, p.OrderID, p.To
	default:
		return nil // not ours
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, userID, orderID)
	val := fmt.Sprintf(`{"status":%q}`, status)
	if created {
		// Both event types share a topic and partition, so in-order delivery
		// is the normal case; SetNX still keeps a redelivered OrderCreated
		// from regressing a cache entry that already advanced.
		if err := s.Redis.SetNX(ctx, key, val, redisx.TTLStatusCache).Err(); err != nil {
			return err
		}
	} else if err := s.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	s.Log.Info("status cached", "order_id", orderID, "status", status)
	return nil
}
