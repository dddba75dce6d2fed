package roulette

import (
	"casino-bot/internal/money"
)

// Payout multipliers on the stake. The stake was debited at placement,
// so a winning bet is credited stake times the multiplier and a losing
// bet is credited nothing.
const (
	multiplierNumber = 35
	multiplierEven   = 2 // red/black, odd/even, half
	multiplierDozen  = 3 // group and row
	multiplierSplit  = 18
	multiplierCorner = 9
)

// Evaluate is the pure payout function: the amount to credit for one
// bet given the drawn outcome, zero if the bet lost. Zero matches no
// color, parity or half bet.
func Evaluate(outcome int, bt BetType, stake money.Amount) money.Amount {
	if wins(outcome, bt) {
		return stake.Scale(multiplier(bt))
	}
	return money.Zero
}

// EvaluateStored evaluates a bet in its persisted string form.
func EvaluateStored(outcome int, betType string, stake money.Amount) (money.Amount, error) {
	bt, err := ParseStored(betType)
	if err != nil {
		return money.Zero, err
	}
	return Evaluate(outcome, bt, stake), nil
}

func wins(outcome int, bt BetType) bool {
	switch bt.Kind {
	case KindNumber:
		return outcome == bt.Operand
	case KindRed:
		return IsRed(outcome)
	case KindBlack:
		return IsBlack(outcome)
	case KindOdd:
		return outcome != 0 && outcome%2 == 1
	case KindEven:
		return outcome != 0 && outcome%2 == 0
	case KindHalf:
		if bt.Operand == 1 {
			return outcome >= 1 && outcome <= 18
		}
		return outcome >= 19 && outcome <= 36
	case KindGroup:
		return inGroup(outcome, bt.Operand)
	case KindRow:
		return inRow(outcome, bt.Operand)
	case KindBatch:
		for _, n := range bt.Numbers {
			if outcome == n {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func multiplier(bt BetType) int64 {
	switch bt.Kind {
	case KindNumber:
		return multiplierNumber
	case KindRed, KindBlack, KindOdd, KindEven, KindHalf:
		return multiplierEven
	case KindGroup, KindRow:
		return multiplierDozen
	case KindBatch:
		if len(bt.Numbers) == 2 {
			return multiplierSplit
		}
		return multiplierCorner
	default:
		return 0
	}
}
