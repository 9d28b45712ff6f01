package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/sahelcraft/marketplace/internal/kafka"
	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/redisx"
)

// Service consumes order.paid events and notifies every artisan with
// items on the order, once per event.
type Service struct {
	Redis       *redis.Client
	Notifier    Notifier
	ServiceName string
}

// HandleOrderPaid is mounted as the consumer handler.
func (s *Service) HandleOrderPaid(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPaid {
		return nil
	}

	// Dedup by event id so redeliveries do not spam sellers.
	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	if s.Redis != nil {
		if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
	if err != nil {
		return err
	}
	for _, artisanID := range p.ArtisanIDs {
		if err := s.Notifier.NewPaidOrder(ctx, artisanID, p.OrderID, p.Amount); err != nil {
			return err
		}
	}

	if s.Redis != nil {
		return s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}
