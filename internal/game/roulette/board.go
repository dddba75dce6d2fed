// Package roulette implements the roulette economy engine: the board
// tables, the bet grammar, the pure payout evaluator and the settlement
// scheduler that drives the 120-second betting cycle.
package roulette

import (
	"fmt"
	"strings"
)

// Red and black number sets of the European wheel. Zero is neither.
var (
	redNumbers = map[int]bool{
		1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
		14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
		25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
	}
	blackNumbers = map[int]bool{
		2: true, 4: true, 6: true, 8: true, 10: true, 11: true,
		13: true, 15: true, 17: true, 20: true, 22: true, 24: true,
		26: true, 28: true, 29: true, 31: true, 33: true, 35: true,
	}
)

// board is the standard European table layout: three rows of twelve,
// highest row first. Row bets and batch adjacency both derive from it.
var board = [3][12]int{
	{3, 6, 9, 12, 15, 18, 21, 24, 27, 30, 33, 36},
	{2, 5, 8, 11, 14, 17, 20, 23, 26, 29, 32, 35},
	{1, 4, 7, 10, 13, 16, 19, 22, 25, 28, 31, 34},
}

// position of each number on the board grid.
type position struct {
	row, col int
}

var boardPos = func() map[int]position {
	pos := make(map[int]position, 36)
	for r, row := range board {
		for c, n := range row {
			pos[n] = position{row: r, col: c}
		}
	}
	return pos
}()

// IsRed reports whether n is a red number.
func IsRed(n int) bool { return redNumbers[n] }

// IsBlack reports whether n is a black number.
func IsBlack(n int) bool { return blackNumbers[n] }

// Color returns "red", "black" or "" for zero.
func Color(n int) string {
	switch {
	case redNumbers[n]:
		return "red"
	case blackNumbers[n]:
		return "black"
	default:
		return ""
	}
}

// inRow reports whether n is in board row k (1-3).
func inRow(n, k int) bool {
	p, ok := boardPos[n]
	return ok && p.row == k-1
}

// inGroup reports whether n is in dozen k (1-3): 1-12, 13-24, 25-36.
func inGroup(n, k int) bool {
	return n >= (k-1)*12+1 && n <= k*12
}

// validSplit reports whether a and b are adjacent on the board grid:
// neighbors within a row (differ by 3) or within a column (differ by 1).
func validSplit(a, b int) bool {
	pa, ok := boardPos[a]
	if !ok {
		return false
	}
	pb, ok := boardPos[b]
	if !ok {
		return false
	}
	sameRow := pa.row == pb.row && abs(pa.col-pb.col) == 1
	sameCol := pa.col == pb.col && abs(pa.row-pb.row) == 1
	return sameRow || sameCol
}

// validCorner reports whether the four numbers form a 2x2 block on the
// board grid, in any order.
func validCorner(nums []int) bool {
	if len(nums) != 4 {
		return false
	}
	seen := make(map[int]bool, 4)
	minRow, minCol := 3, 12
	for _, n := range nums {
		if seen[n] {
			return false
		}
		seen[n] = true
		p, ok := boardPos[n]
		if !ok {
			return false
		}
		if p.row < minRow {
			minRow = p.row
		}
		if p.col < minCol {
			minCol = p.col
		}
	}
	if minRow > 1 || minCol > 10 {
		return false
	}

	want := map[int]bool{
		board[minRow][minCol]:     true,
		board[minRow][minCol+1]:   true,
		board[minRow+1][minCol]:   true,
		board[minRow+1][minCol+1]: true,
	}
	for _, n := range nums {
		if !want[n] {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// BoardText renders the table layout as plain text for the board query.
func BoardText() string {
	var b strings.Builder
	for r, row := range board {
		if r == 0 {
			b.WriteString(" 0 |")
		} else {
			b.WriteString("   |")
		}
		for _, n := range row {
			fmt.Fprintf(&b, " %2d", n)
		}
		b.WriteString("\n")
	}
	return b.String()
}
