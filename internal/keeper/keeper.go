// Package keeper schedules upkeep checks and triggers draws when the
// raffle becomes eligible.
package keeper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"
	"github.com/robfig/cron/v3"

	"raffle/internal/services"
)

// Raffle is the slice of the engine the keeper drives.
type Raffle interface {
	CheckUpkeep() bool
	PerformUpkeep(ctx context.Context) (string, error)
}

// Keeper evaluates the trigger conditions on a cron schedule.
type Keeper struct {
	raffle Raffle
	cron   *cron.Cron
}

// New creates a keeper from a seconds-resolution cron spec such as
// "*/10 * * * * *".
func New(raffle Raffle, spec string) (*Keeper, error) {
	k := &Keeper{
		raffle: raffle,
		cron:   cron.New(cron.WithSeconds()),
	}
	if _, err := k.cron.AddFunc(spec, k.Tick); err != nil {
		return nil, fmt.Errorf("parse keeper schedule %q: %w", spec, err)
	}
	return k, nil
}

// Tick runs one upkeep evaluation. The engine re-checks eligibility
// inside PerformUpkeep, so losing a race between check and perform is
// harmless.
func (k *Keeper) Tick() {
	if !k.raffle.CheckUpkeep() {
		return
	}

	requestID, err := k.raffle.PerformUpkeep(context.Background())
	if err != nil {
		if errors.Is(err, services.ErrUpkeepNotNeeded) {
			logger.Infof("upkeep no longer needed: %v", err)
			return
		}
		logger.Warningf("perform upkeep: %v", err)
		return
	}
	logger.Infof("keeper triggered draw, request %s", requestID)
}

// Start begins the schedule in its own goroutine.
func (k *Keeper) Start() {
	k.cron.Start()
}

// Stop halts the schedule and waits for a running tick to finish.
func (k *Keeper) Stop() {
	<-k.cron.Stop().Done()
}
