package automation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator is a comparison symbol.
type Operator string

// Supported operators.
const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "=="
	OpGreaterEqual Operator = ">="
	OpGreater      Operator = ">"
	OpNotEqual     Operator = "!="
)

// ParseOperator validates a comparison symbol.
func ParseOperator(symbol string) (Operator, error) {
	switch op := Operator(symbol); op {
	case OpLess, OpLessEqual, OpEqual, OpGreaterEqual, OpGreater, OpNotEqual:
		return op, nil
	default:
		return "", fmt.Errorf("%w: operator %q", ErrUnexpectedValue, symbol)
	}
}

// Predicate compares a reading against a fixed threshold.
type Predicate struct {
	Op        Operator `json:"op"`
	Threshold float64  `json:"threshold"`
}

// NewPredicate builds a Predicate from a symbol and a finite threshold.
func NewPredicate(symbol string, threshold float64) (Predicate, error) {
	op, err := ParseOperator(symbol)
	if err != nil {
		return Predicate{}, err
	}
	if !isFinite(threshold) {
		return Predicate{}, fmt.Errorf("%w: threshold %v is not finite", ErrUnexpectedValue, threshold)
	}
	return Predicate{Op: op, Threshold: threshold}, nil
}

// ParsePredicate parses expressions such as ">= 25" or "<18.5".
func ParsePredicate(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)

	end := 0
	for end < len(expr) && strings.ContainsRune("<>=!", rune(expr[end])) {
		end++
	}
	if end == 0 {
		return Predicate{}, fmt.Errorf("%w: missing operator in %q", ErrUnexpectedValue, expr)
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(expr[end:]), 64)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: threshold in %q", ErrUnexpectedValue, expr)
	}
	return NewPredicate(expr[:end], threshold)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Eval applies the predicate to a reading.
func (p Predicate) Eval(v float64) bool {
	switch p.Op {
	case OpLess:
		return v < p.Threshold
	case OpLessEqual:
		return v <= p.Threshold
	case OpEqual:
		return v == p.Threshold
	case OpGreaterEqual:
		return v >= p.Threshold
	case OpGreater:
		return v > p.Threshold
	case OpNotEqual:
		return v != p.Threshold
	default:
		return false
	}
}

// String renders the predicate in the form ParsePredicate accepts.
func (p Predicate) String() string {
	return fmt.Sprintf("%s %s", p.Op, strconv.FormatFloat(p.Threshold, 'f', -1, 64))
}

// Rule fires Commands when When holds for a reading.
type Rule struct {
	When     Predicate  `json:"when"`
	Commands CommandSet `json:"commands"`
}
