// Package oracle defines the randomness coordinator boundary and ships an
// in-process coordinator backed by crypto/rand.
package oracle

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
)

// RandomWordsRequest carries the provider parameters for one randomness
// request. All fields come from the raffle configuration.
type RandomWordsRequest struct {
	GasLane              string
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// Coordinator is the outbound half of the randomness boundary. A request
// returns immediately with an opaque handle; the words arrive later via
// the consumer callback.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, req RandomWordsRequest) (string, error)
}

// Consumer is the inbound half, implemented by the raffle engine.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, requestID string, words []uint64) error
}

// LocalCoordinator fulfills requests itself after a fixed delay, deriving
// words from crypto/rand. It stands in for an external randomness
// provider in single-process deployments and tests.
type LocalCoordinator struct {
	mu       sync.Mutex
	consumer Consumer
	delay    time.Duration
}

// NewLocalCoordinator creates a coordinator that fulfills after delay.
func NewLocalCoordinator(delay time.Duration) *LocalCoordinator {
	return &LocalCoordinator{delay: delay}
}

// Attach sets the consumer that receives fulfillments. The coordinator
// and the engine reference each other, so the consumer is attached after
// both are constructed.
func (c *LocalCoordinator) Attach(consumer Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = consumer
}

// RequestRandomWords issues a new request handle and schedules its
// asynchronous fulfillment.
func (c *LocalCoordinator) RequestRandomWords(ctx context.Context, req RandomWordsRequest) (string, error) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()
	if consumer == nil {
		return "", fmt.Errorf("no consumer attached")
	}
	if req.NumWords == 0 {
		return "", fmt.Errorf("request must ask for at least one word")
	}

	requestID := uuid.NewString()

	time.AfterFunc(c.delay, func() {
		words, err := randomWords(int(req.NumWords))
		if err != nil {
			logger.Errorf("generate random words for request %s: %v", requestID, err)
			return
		}
		if err := consumer.FulfillRandomWords(context.Background(), requestID, words); err != nil {
			logger.Warningf("fulfill request %s: %v", requestID, err)
		}
	})

	return requestID, nil
}

// randomWords reads n uint64 values from crypto/rand.
func randomWords(n int) ([]uint64, error) {
	buf := make([]byte, 8*n)
	if _, err := crand.Read(buf); err != nil {
		return nil, fmt.Errorf("read randomness: %w", err)
	}

	words := make([]uint64, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint64(buf[8*i : 8*i+8])
	}
	return words, nil
}
