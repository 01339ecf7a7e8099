package models

import "time"

// RaffleState represents the lifecycle state of the current round.
type RaffleState string

const (
	// StateOpen accepts entries and permits triggering a draw.
	StateOpen RaffleState = "open"
	// StateDrawing rejects entries and blocks re-triggering until the
	// randomness callback settles the round.
	StateDrawing RaffleState = "drawing"
)

// Config holds the raffle parameters. It is supplied once at construction
// and never mutated afterwards.
type Config struct {
	EntranceFee uint64        `json:"entranceFee"` // minimum payment, smallest units
	Interval    time.Duration `json:"interval"`    // minimum time between draws

	// Randomness coordinator parameters, passed through on every request.
	SubscriptionID       uint64 `json:"subscriptionId"`
	GasLane              string `json:"gasLane"`
	RequestConfirmations uint16 `json:"requestConfirmations"`
	CallbackGasLimit     uint32 `json:"callbackGasLimit"`
	NumWords             uint32 `json:"numWords"`
}

// Summary is a read-only snapshot of the engine state.
type Summary struct {
	State            RaffleState `json:"state"`
	NumPlayers       int         `json:"numPlayers"`
	Pot              uint64      `json:"pot"`
	EntranceFee      uint64      `json:"entranceFee"`
	Interval         string      `json:"interval"`
	RecentWinner     string      `json:"recentWinner,omitempty"`
	LastDrawTime     time.Time   `json:"lastDrawTime"`
	PendingRequestID string      `json:"pendingRequestId,omitempty"`
}
