// Package main is the entry point for the casino bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"casino-bot/internal/bot"
	"casino-bot/internal/config"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/money"
	"casino-bot/internal/pkg/db"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository"
	"casino-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	params, err := casinoParams(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid casino economy configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(dbPool.Pool)
	betRepo := repository.NewBetRepository(dbPool.Pool)
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)

	// Initialize user lock
	userLock := lock.NewUserLock()

	clock := roulette.SystemClock{}

	casino := service.NewCasino(
		dbPool.Pool,
		accountRepo,
		betRepo,
		ledgerRepo,
		userLock,
		clock,
		params,
		log.Logger,
	)

	// Initialize bot
	telegramBot, err := bot.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	scheduler := roulette.NewScheduler(
		casino,
		telegramBot.Notifier(),
		log.Logger,
		roulette.WithClock(clock),
	)

	telegramBot.Setup(casino, scheduler)

	// Run the wheel cycle and the nightly bonus in the background
	go scheduler.Run(ctx)
	go casino.RunNightlyBonus(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	cancel()
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// casinoParams decodes the configured money strings once at startup so
// a typo fails fast instead of surfacing mid-settlement.
func casinoParams(cfg *config.Config) (service.Params, error) {
	var p service.Params
	var err error

	if p.OpeningBalance, err = money.Decode(cfg.Casino.OpeningBalance); err != nil {
		return p, err
	}
	if p.BegReward, err = money.Decode(cfg.Casino.BegReward); err != nil {
		return p, err
	}
	if p.NightlyBonus, err = money.Decode(cfg.Casino.NightlyBonus); err != nil {
		return p, err
	}
	p.NightlyBonusHour = cfg.Casino.NightlyBonusHour
	return p, nil
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create accounts table. Balances are stored as the
	// canonical money string, never as a float.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			user_id VARCHAR(64) PRIMARY KEY,
			nickname VARCHAR(255) NOT NULL,
			balance TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: accounts table created")

	// Migration 2: Create bets table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bets (
			id BIGSERIAL PRIMARY KEY,
			game VARCHAR(50) NOT NULL,
			user_id VARCHAR(64) NOT NULL REFERENCES accounts(user_id) ON DELETE CASCADE,
			sender VARCHAR(64) NOT NULL,
			amount TEXT NOT NULL,
			bet_type VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_bets_game_user ON bets(game, user_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: bets table created")

	// Migration 3: Create ledger_entries table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL REFERENCES accounts(user_id) ON DELETE CASCADE,
			amount TEXT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_time ON ledger_entries(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_entries_type_time ON ledger_entries(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: ledger_entries table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
