package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/cobra"

	"raffle/internal/bank"
	"raffle/internal/config"
	"raffle/internal/events"
	"raffle/internal/handlers"
	"raffle/internal/keeper"
	"raffle/internal/oracle"
	"raffle/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "raffle",
	Short: "single-round repeatable raffle with an asynchronous randomness coordinator",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the raffle HTTP server and upkeep keeper",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	defer logger.Init("raffle", cfg.Verbose, false, io.Discard).Close()

	// 1. The notification bus and the ledger that holds accounts.
	bus := events.NewBus()
	ledger := bank.NewLedger()

	// 2. The local randomness coordinator and the raffle engine. The
	// coordinator needs the engine as its consumer, so it is attached
	// after construction.
	coordinator := oracle.NewLocalCoordinator(cfg.OracleDelay)
	raffleService := services.NewRaffleService(cfg.Raffle(), coordinator, ledger, bus)
	coordinator.Attach(raffleService)

	// 3. The keeper that triggers draws once the interval has elapsed.
	k, err := keeper.New(raffleService, cfg.KeeperSchedule)
	if err != nil {
		return err
	}
	k.Start()
	defer k.Stop()

	// 4. The HTTP surface.
	r := gin.Default()
	httpHandler := handlers.NewHTTPHandler(raffleService, ledger, bus)
	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Infof("raffle server starting on %s (entrance fee %d, interval %s)", addr, cfg.EntranceFee, cfg.Interval)
	if err := r.Run(addr); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
