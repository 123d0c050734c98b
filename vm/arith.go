package vm

import (
	"fmt"
	"math"
	"strings"
)

// OverflowPolicy decides what ADD and MUL do when the result does not fit
// in an int64.
type OverflowPolicy int

const (
	OverflowCheck OverflowPolicy = iota // abort with *OverflowFault
	OverflowWrap                        // two's-complement wrap
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowCheck:
		return "fault"
	case OverflowWrap:
		return "wrap"
	default:
		return "unknown overflow policy"
	}
}

// ParseOverflowPolicy accepts "fault" (or "check") and "wrap".
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fault", "check":
		return OverflowCheck, nil
	case "wrap":
		return OverflowWrap, nil
	}
	return 0, fmt.Errorf("unknown overflow policy %q (want fault or wrap)", s)
}

// binaryOp combines two operands. ok is false when the result overflowed.
type binaryOp func(a, b int64) (r int64, ok bool)

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (a > 0 && b > 0 && c < 0) || (a < 0 && b < 0 && c >= 0) {
		return c, false
	}
	return c, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return c, false
	}
	return c, true
}

func lessThan(a, b int64) (int64, bool) {
	if a < b {
		return 1, true
	}
	return 0, true
}

func equals(a, b int64) (int64, bool) {
	if a == b {
		return 1, true
	}
	return 0, true
}
