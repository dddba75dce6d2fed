// Package handler provides Telegram command handlers for the casino.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"casino-bot/internal/config"
	"casino-bot/internal/model"
	"casino-bot/internal/money"
	"casino-bot/internal/service"
)

// CasinoHandler handles the /casino command.
type CasinoHandler struct {
	cfg    *config.Config
	casino *service.Casino
}

// NewCasinoHandler creates a new CasinoHandler.
func NewCasinoHandler(cfg *config.Config, casino *service.Casino) *CasinoHandler {
	return &CasinoHandler{cfg: cfg, casino: casino}
}

const casinoUsage = "/casino provides basic casino functions\n" +
	"syntax:\n" +
	"/casino balance - sends you your current balance\n" +
	"/casino beg - beg for a little money\n" +
	"/casino grant <amount> - credit every account (admin)"

// HandleCasino handles "/casino balance", "/casino beg" and the
// admin-only "/casino grant".
func (h *CasinoHandler) HandleCasino(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	userID := strconv.FormatInt(sender.ID, 10)
	if _, _, err := h.casino.EnsureAccount(ctx, userID, nickname(sender)); err != nil {
		return c.Reply("Something went wrong, please try again later")
	}

	args := strings.Fields(strings.ToLower(c.Message().Payload))
	if len(args) == 0 {
		return c.Reply(casinoUsage)
	}

	switch args[0] {
	case "balance":
		balance, err := h.casino.Balance(ctx, userID)
		if err != nil {
			return c.Reply("Something went wrong, please try again later")
		}
		return c.Reply(fmt.Sprintf("Your balance is: %s€", balance.Encode(true)))

	case "beg":
		reward, _, err := h.casino.Beg(ctx, userID)
		if err != nil {
			return c.Reply("Something went wrong, please try again later")
		}
		return c.Reply(fmt.Sprintf("You earn %s€ while begging for money", reward.Encode(true)))

	case "grant":
		return h.handleGrant(ctx, c, sender.ID, args[1:])

	default:
		return c.Reply(casinoUsage)
	}
}

// handleGrant credits every account, the explicit house credit that
// conservation accounting expects to see as its own entry type.
func (h *CasinoHandler) handleGrant(ctx context.Context, c tele.Context, senderID int64, args []string) error {
	if !h.cfg.IsAdmin(senderID) {
		return c.Reply("Sorry.")
	}
	if len(args) != 1 {
		return c.Reply(casinoUsage)
	}

	amount, err := money.Decode(args[0])
	if err != nil || amount.Cents() <= 0 {
		return c.Reply(casinoUsage)
	}

	granted, err := h.casino.GrantBonusAll(ctx, amount, model.TxTypeAdminGrant, "admin grant")
	if err != nil {
		return c.Reply("Something went wrong, please try again later")
	}
	return c.Reply(fmt.Sprintf("Granted %s€ to %d accounts", amount.Encode(true), granted))
}

// nickname picks a display name for the account record.
func nickname(sender *tele.User) string {
	if sender.Username != "" {
		return sender.Username
	}
	return sender.FirstName
}
