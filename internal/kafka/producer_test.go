package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerCloseIdempotent(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	p.Start(context.Background())

	assert.NotPanics(t, func() {
		p.Close()
		p.Close()
	})
	p.WaitClosed()
}

func TestProducerCancelThenCloseDoesNotPanic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	// Both shutdown paths fire: context cancellation and an explicit Close.
	cancel()
	assert.NotPanics(t, p.Close)

	done := make(chan struct{})
	go func() {
		p.WaitClosed()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "producer loop never exited")
	}
}
