package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/game/roulette"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// RouletteHandler handles the /roulette command family.
type RouletteHandler struct {
	cfg       *config.Config
	casino    *service.Casino
	scheduler *roulette.Scheduler
}

// NewRouletteHandler creates a new RouletteHandler.
func NewRouletteHandler(cfg *config.Config, casino *service.Casino, scheduler *roulette.Scheduler) *RouletteHandler {
	return &RouletteHandler{cfg: cfg, casino: casino, scheduler: scheduler}
}

const rouletteUsage = "/roulette allows you to play roulette\n" +
	"syntax: /roulette <amount> <bet>\n" +
	"valid bets: 0-36 | red | black | odd | even | half 1-2 | group 1-3 | row 1-3 | batch <2 or 4 adjacent numbers>\n" +
	"/roulette time - time left until the wheel is spun again\n" +
	"/roulette board - the board layout as reference\n" +
	"/roulette bets - your current bets\n" +
	"/roulette cancel - cancels and refunds all your bets\n" +
	"/roulette spin - immediately spins the wheel (admin)"

// HandleRoulette dispatches the /roulette subcommands and bets.
func (h *RouletteHandler) HandleRoulette(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return nil
	}

	userID := strconv.FormatInt(sender.ID, 10)
	if _, _, err := h.casino.EnsureAccount(ctx, userID, nickname(sender)); err != nil {
		return c.Reply("Something went wrong, please try again later")
	}

	args := strings.Fields(strings.ToLower(c.Message().Payload))
	if len(args) == 0 {
		return c.Reply(rouletteUsage)
	}

	switch args[0] {
	case "time":
		return c.Reply(fmt.Sprintf("%ds to turn.", h.scheduler.TimeRemaining()))
	case "board":
		return c.Reply(roulette.BoardText())
	case "bets":
		return h.handleBets(ctx, c, userID)
	case "cancel":
		return h.handleCancel(ctx, c, userID)
	case "spin":
		return h.handleSpin(ctx, c, sender.ID)
	default:
		if len(args) < 2 {
			return c.Reply(rouletteUsage)
		}
		recipient := strconv.FormatInt(chat.ID, 10)
		return h.handleBet(ctx, c, userID, recipient, args[0], args[1:])
	}
}

func (h *RouletteHandler) handleBets(ctx context.Context, c tele.Context, userID string) error {
	bets, err := h.casino.ListBets(ctx, model.GameRoulette, userID)
	if err != nil {
		return c.Reply("Something went wrong, please try again later")
	}
	if len(bets) == 0 {
		return c.Reply("You have no bets")
	}

	var b strings.Builder
	b.WriteString("You have bet on the following:")
	for _, bet := range bets {
		bt, err := roulette.ParseStored(bet.BetType)
		label := bet.BetType
		if err == nil {
			label = bt.Describe()
		}
		fmt.Fprintf(&b, "\nBet: %s     Amount: %s€", label, bet.Amount.Encode(true))
	}
	return c.Reply(b.String())
}

func (h *RouletteHandler) handleCancel(ctx context.Context, c tele.Context, userID string) error {
	refunded, count, err := h.casino.CancelBets(ctx, model.GameRoulette, userID)
	if err != nil {
		return c.Reply("Something went wrong, please try again later")
	}
	if count == 0 {
		return c.Reply("You have no bets")
	}
	return c.Reply(fmt.Sprintf("Bets cancelled, %s€ refunded", refunded.Encode(true)))
}

func (h *RouletteHandler) handleSpin(ctx context.Context, c tele.Context, senderID int64) error {
	if !h.cfg.IsAdmin(senderID) {
		return c.Reply("Sorry.")
	}

	if _, err := h.scheduler.ForceSpin(ctx); err != nil {
		if errors.Is(err, roulette.ErrCycleBusy) {
			return c.Reply("A spin is already in progress, try again in a moment")
		}
		return c.Reply("Something went wrong, please try again later")
	}
	return nil
}

func (h *RouletteHandler) handleBet(ctx context.Context, c tele.Context, userID, recipient, amountText string, betWords []string) error {
	_, err := h.casino.PlaceBet(ctx, model.GameRoulette, recipient, userID, amountText, betWords)
	switch {
	case err == nil:
		return c.Reply("Bet Saved")
	case errors.Is(err, service.ErrCycleLocked):
		return c.Reply("Currently spinning the wheel!")
	case errors.Is(err, service.ErrInsufficientFunds):
		return c.Reply("Insufficient Funds")
	case errors.Is(err, roulette.ErrInvalidBetShape):
		return c.Reply("Invalid batch!")
	case errors.Is(err, money.ErrMalformedAmount), errors.Is(err, roulette.ErrInvalidBet):
		return c.Reply(rouletteUsage)
	default:
		return c.Reply("Something went wrong, please try again later")
	}
}
