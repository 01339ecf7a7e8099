package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/logger"

	"raffle/internal/events"
	"raffle/internal/models"
	"raffle/internal/oracle"
)

// Errors
var (
	ErrInsufficientPayment = errors.New("payment below entrance fee")
	ErrRaffleNotOpen       = errors.New("raffle is not open")
	ErrUpkeepNotNeeded     = errors.New("upkeep not needed")
	ErrUnknownRequest      = errors.New("unknown randomness request")
	ErrPayoutFailed        = errors.New("payout failed")
	ErrIndexOutOfRange     = errors.New("player index out of range")
)

// UpkeepNotNeededError reports why a draw could not be triggered.
type UpkeepNotNeededError struct {
	State      models.RaffleState
	Pot        uint64
	NumPlayers int
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("upkeep not needed: state=%s pot=%d players=%d", e.State, e.Pot, e.NumPlayers)
}

// Is makes the diagnostic error match ErrUpkeepNotNeeded.
func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}

// Payer transfers the prize to the winner.
type Payer interface {
	Pay(ctx context.Context, to string, amount uint64) error
}

// RaffleService is the raffle engine. It owns the round state, the
// participant roster, the pot and the winner record; every operation runs
// as an indivisible unit under one mutex.
type RaffleService struct {
	mu sync.Mutex

	cfg              models.Config
	state            models.RaffleState
	players          []string
	pot              uint64
	lastDrawTime     time.Time
	recentWinner     string
	pendingRequestID string

	coordinator oracle.Coordinator
	payer       Payer
	bus         *events.Bus

	now func() time.Time
}

// NewRaffleService creates an open raffle with an empty roster. The last
// draw time starts at construction time, so the first draw becomes
// eligible one full interval later.
func NewRaffleService(cfg models.Config, coordinator oracle.Coordinator, payer Payer, bus *events.Bus) *RaffleService {
	if cfg.NumWords == 0 {
		cfg.NumWords = 1
	}
	return &RaffleService{
		cfg:          cfg,
		state:        models.StateOpen,
		players:      make([]string, 0),
		lastDrawTime: time.Now().UTC(),
		coordinator:  coordinator,
		payer:        payer,
		bus:          bus,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Enter adds a participant to the current round. The full payment joins
// the pot, and the same participant may enter any number of times, each
// entry counting separately toward the draw.
func (s *RaffleService) Enter(player string, payment uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment < s.cfg.EntranceFee {
		return ErrInsufficientPayment
	}
	if s.state != models.StateOpen {
		return ErrRaffleNotOpen
	}

	s.players = append(s.players, player)
	s.pot += payment

	logger.Infof("player %s entered with %d (players=%d pot=%d)", player, payment, len(s.players), s.pot)
	s.bus.Publish(events.TypeEntered, map[string]any{
		"player":  player,
		"payment": payment,
	})
	return nil
}

// CheckUpkeep reports whether a draw may be triggered right now. All four
// conditions must hold: the interval has elapsed, the raffle is open, the
// pot is funded and the roster is non-empty.
func (s *RaffleService) CheckUpkeep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkUpkeepLocked()
}

func (s *RaffleService) checkUpkeepLocked() bool {
	intervalElapsed := s.now().Sub(s.lastDrawTime) >= s.cfg.Interval
	isOpen := s.state == models.StateOpen
	hasFunds := s.pot > 0
	hasPlayers := len(s.players) > 0
	return intervalElapsed && isOpen && hasFunds && hasPlayers
}

// PerformUpkeep triggers a draw: it flips the raffle to drawing and asks
// the coordinator for random words. The roster and pot are untouched; the
// round settles when the words arrive via FulfillRandomWords. If the
// coordinator rejects the request the state flip is rolled back so the
// operation has no effect.
func (s *RaffleService) PerformUpkeep(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkUpkeepLocked() {
		return "", &UpkeepNotNeededError{State: s.state, Pot: s.pot, NumPlayers: len(s.players)}
	}

	s.state = models.StateDrawing

	requestID, err := s.coordinator.RequestRandomWords(ctx, oracle.RandomWordsRequest{
		GasLane:              s.cfg.GasLane,
		SubscriptionID:       s.cfg.SubscriptionID,
		RequestConfirmations: s.cfg.RequestConfirmations,
		CallbackGasLimit:     s.cfg.CallbackGasLimit,
		NumWords:             s.cfg.NumWords,
	})
	if err != nil {
		s.state = models.StateOpen
		return "", fmt.Errorf("request random words: %w", err)
	}

	s.pendingRequestID = requestID

	logger.Infof("draw triggered, request %s (players=%d pot=%d)", requestID, len(s.players), s.pot)
	s.bus.Publish(events.TypeWinnerRequested, map[string]any{
		"requestId": requestID,
	})
	return requestID, nil
}

// FulfillRandomWords settles the round for a previously issued request.
// The winner is players[words[0] % len(players)]; the modulo selection is
// part of the contract. On success the roster is cleared, the raffle
// reopens and the whole pot is paid to the winner. If the payout fails
// every field change is rolled back and the request handle stays valid so
// the same fulfillment can be redelivered.
func (s *RaffleService) FulfillRandomWords(ctx context.Context, requestID string, words []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.StateDrawing || requestID == "" || requestID != s.pendingRequestID {
		return ErrUnknownRequest
	}
	if len(words) == 0 {
		return fmt.Errorf("fulfill request %s: no random words supplied", requestID)
	}

	winnerIndex := words[0] % uint64(len(s.players))
	winner := s.players[winnerIndex]
	prize := s.pot

	prevWinner := s.recentWinner
	prevPlayers := s.players
	prevLastDraw := s.lastDrawTime

	s.recentWinner = winner
	s.state = models.StateOpen
	s.players = make([]string, 0)
	s.lastDrawTime = s.now()

	// Published before the payout so the pick is observable even when the
	// transfer fails. Events are fire-and-forget, not state.
	s.bus.Publish(events.TypeWinnerPicked, map[string]any{
		"winner":    winner,
		"prize":     prize,
		"requestId": requestID,
	})

	if err := s.payer.Pay(ctx, winner, prize); err != nil {
		s.recentWinner = prevWinner
		s.state = models.StateDrawing
		s.players = prevPlayers
		s.lastDrawTime = prevLastDraw
		logger.Errorf("payout of %d to %s failed, round left unsettled: %v", prize, winner, err)
		return fmt.Errorf("%w: %v", ErrPayoutFailed, err)
	}

	s.pot = 0
	s.pendingRequestID = ""

	logger.Infof("winner %s paid %d for request %s", winner, prize, requestID)
	return nil
}

// EntranceFee returns the configured minimum payment.
func (s *RaffleService) EntranceFee() uint64 { return s.cfg.EntranceFee }

// Interval returns the configured minimum time between draws.
func (s *RaffleService) Interval() time.Duration { return s.cfg.Interval }

// State returns the current round state.
func (s *RaffleService) State() models.RaffleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NumPlayers returns the roster size for the current round.
func (s *RaffleService) NumPlayers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// Player returns the roster entry at index.
func (s *RaffleService) Player(index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.players) {
		return "", ErrIndexOutOfRange
	}
	return s.players[index], nil
}

// Players returns a copy of the roster in entry order.
func (s *RaffleService) Players() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.players))
	copy(out, s.players)
	return out
}

// Pot returns the balance held for the current round.
func (s *RaffleService) Pot() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pot
}

// RecentWinner returns the winner of the most recently settled round, or
// the empty string before the first settlement.
func (s *RaffleService) RecentWinner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentWinner
}

// LastDrawTime returns when the current round started.
func (s *RaffleService) LastDrawTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDrawTime
}

// PendingRequestID returns the outstanding randomness request handle, or
// the empty string when no draw is in flight.
func (s *RaffleService) PendingRequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingRequestID
}

// Summary returns a snapshot of the engine for the read API.
func (s *RaffleService) Summary() models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Summary{
		State:            s.state,
		NumPlayers:       len(s.players),
		Pot:              s.pot,
		EntranceFee:      s.cfg.EntranceFee,
		Interval:         s.cfg.Interval.String(),
		RecentWinner:     s.recentWinner,
		LastDrawTime:     s.lastDrawTime,
		PendingRequestID: s.pendingRequestID,
	}
}
