// Package notify fans order events out to artisan notifications. The
// delivery transport (SMS, email, push) lives behind the Notifier seam.
package notify

import (
	"context"
	"log"
)

type Notifier interface {
	NewPaidOrder(ctx context.Context, artisanID, orderID string, amount int64) error
}

// LogNotifier is the in-repo stand-in for a real delivery channel.
type LogNotifier struct{}

func (LogNotifier) NewPaidOrder(ctx context.Context, artisanID, orderID string, amount int64) error {
	log.Printf("notify artisan %s: order %s paid (amount %d)", artisanID, orderID, amount)
	return nil
}
