package roulette

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Bet grammar errors.
var (
	// ErrInvalidBet is returned for input that doesn't match the bet
	// grammar at all.
	ErrInvalidBet = errors.New("invalid bet")
	// ErrInvalidBetShape is returned for a batch whose numbers do not
	// form a split or corner on the board.
	ErrInvalidBetShape = errors.New("batch numbers are not adjacent on the board")
)

// Kind enumerates the bet shapes of the rule table.
type Kind int

const (
	KindNumber Kind = iota // exact number 0-36
	KindRed
	KindBlack
	KindOdd
	KindEven
	KindHalf  // 1-18 or 19-36
	KindGroup // dozen 1-3
	KindRow   // board row 1-3
	KindBatch // split (2 numbers) or corner (4 numbers)
)

// BetType is a parsed, validated bet shape. It round-trips through the
// stored string form via String and ParseStored.
type BetType struct {
	Kind    Kind
	Operand int   // number, half, group or row index
	Numbers []int // batch numbers
}

// ParseBetType parses the user-facing bet words, e.g. ["red"],
// ["half", "2"], ["batch", "5-6"]. Shapes that don't exist on the
// board are rejected before any ledger access.
func ParseBetType(words []string) (BetType, error) {
	if len(words) == 0 {
		return BetType{}, ErrInvalidBet
	}

	head := strings.ToLower(words[0])
	switch head {
	case "red":
		return single(KindRed, words)
	case "black":
		return single(KindBlack, words)
	case "odd":
		return single(KindOdd, words)
	case "even":
		return single(KindEven, words)
	case "half":
		return indexed(KindHalf, words, 2)
	case "group":
		return indexed(KindGroup, words, 3)
	case "row":
		return indexed(KindRow, words, 3)
	case "batch":
		if len(words) != 2 {
			return BetType{}, ErrInvalidBet
		}
		return parseBatch(words[1])
	default:
		if len(words) != 1 {
			return BetType{}, ErrInvalidBet
		}
		n, err := strconv.Atoi(head)
		if err != nil || n < 0 || n > 36 {
			return BetType{}, fmt.Errorf("%w: %q", ErrInvalidBet, head)
		}
		return BetType{Kind: KindNumber, Operand: n}, nil
	}
}

func single(kind Kind, words []string) (BetType, error) {
	if len(words) != 1 {
		return BetType{}, ErrInvalidBet
	}
	return BetType{Kind: kind}, nil
}

func indexed(kind Kind, words []string, max int) (BetType, error) {
	if len(words) != 2 {
		return BetType{}, ErrInvalidBet
	}
	k, err := strconv.Atoi(words[1])
	if err != nil || k < 1 || k > max {
		return BetType{}, fmt.Errorf("%w: %s %q", ErrInvalidBet, words[0], words[1])
	}
	return BetType{Kind: kind, Operand: k}, nil
}

func parseBatch(raw string) (BetType, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 && len(parts) != 4 {
		return BetType{}, fmt.Errorf("%w: batch needs 2 or 4 numbers", ErrInvalidBet)
	}

	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 36 {
			return BetType{}, fmt.Errorf("%w: batch number %q", ErrInvalidBet, p)
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 2:
		if !validSplit(nums[0], nums[1]) {
			return BetType{}, fmt.Errorf("%w: %s", ErrInvalidBetShape, raw)
		}
	case 4:
		if !validCorner(nums) {
			return BetType{}, fmt.Errorf("%w: %s", ErrInvalidBetShape, raw)
		}
	}
	return BetType{Kind: KindBatch, Numbers: nums}, nil
}

// String returns the canonical stored form: the bet type field of the
// persisted bet record ("17", "red", "half:1", "batch:5-6").
func (b BetType) String() string {
	switch b.Kind {
	case KindNumber:
		return strconv.Itoa(b.Operand)
	case KindRed:
		return "red"
	case KindBlack:
		return "black"
	case KindOdd:
		return "odd"
	case KindEven:
		return "even"
	case KindHalf:
		return "half:" + strconv.Itoa(b.Operand)
	case KindGroup:
		return "group:" + strconv.Itoa(b.Operand)
	case KindRow:
		return "row:" + strconv.Itoa(b.Operand)
	case KindBatch:
		parts := make([]string, len(b.Numbers))
		for i, n := range b.Numbers {
			parts[i] = strconv.Itoa(n)
		}
		return "batch:" + strings.Join(parts, "-")
	default:
		return ""
	}
}

// Describe returns the human-readable form used in replies.
func (b BetType) Describe() string {
	return strings.ReplaceAll(b.String(), ":", " ")
}

// ParseStored parses the persisted bet type form back into a BetType.
func ParseStored(s string) (BetType, error) {
	return ParseBetType(strings.SplitN(strings.ReplaceAll(s, ":", " "), " ", 2))
}
