// Package bot provides the Telegram bot initialization and handler
// registration, plus the notifier used for settlement broadcasts.
package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/handler"
	"casino-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config
}

// New creates the Telegram bot. Handlers are registered separately via
// Setup because the settlement scheduler needs the bot's notifier first.
func New(cfg *config.Config) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{bot: teleBot, cfg: cfg}, nil
}

// Setup registers middleware and command handlers.
func (b *Bot) Setup(casino *service.Casino, scheduler *roulette.Scheduler) {
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
	b.bot.Use(RecoveryMiddleware())

	casinoHandler := handler.NewCasinoHandler(b.cfg, casino)
	rouletteHandler := handler.NewRouletteHandler(b.cfg, casino, scheduler)

	b.bot.Handle("/casino", casinoHandler.HandleCasino)
	b.bot.Handle("/roulette", rouletteHandler.HandleRoulette)
}

// Notifier returns the settlement notifier backed by this bot. The
// recipient string is the chat id a bet was placed from.
func (b *Bot) Notifier() roulette.Notifier {
	return &teleNotifier{bot: b.bot}
}

type teleNotifier struct {
	bot *tele.Bot
}

func (n *teleNotifier) Send(recipient, text string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("bad recipient %q: %w", recipient, err)
	}
	_, err = n.bot.Send(tele.ChatID(chatID), text)
	return err
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
