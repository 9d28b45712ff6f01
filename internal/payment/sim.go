package payment

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sahelcraft/marketplace/internal/orders"
)

const declinedReason = "transaction declined by provider"

// Simulator stands in for Orange Money / MTN MoMo / Wave / card providers:
// some latency, then a mostly-successful outcome.
type Simulator struct {
	Latency     time.Duration
	SuccessRate float64 // 0..1

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(latency time.Duration, successRate float64) *Simulator {
	return &Simulator{
		Latency:     latency,
		SuccessRate: successRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSeededSimulator pins the outcome sequence, for tests.
func NewSeededSimulator(latency time.Duration, successRate float64, seed int64) *Simulator {
	return &Simulator{
		Latency:     latency,
		SuccessRate: successRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulator) AttemptPayment(ctx context.Context, orderID string, method orders.PaymentMethod, phone string, amount int64) (Result, error) {
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	// Cash on delivery never fails online; it is settled at the door.
	if method == orders.PayCashOnDelivery {
		return Result{Success: true, TransactionID: NewTransactionID()}, nil
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()
	if roll < s.SuccessRate {
		return Result{Success: true, TransactionID: NewTransactionID()}, nil
	}
	return Result{Success: false, Reason: declinedReason}, nil
}

// NewTransactionID matches the provider reference format, e.g.
// TXN_3F2A9C4D11AB.
func NewTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN_" + strings.ToUpper(hex[:12])
}
