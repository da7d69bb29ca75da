package partition

import (
	"fmt"
	"strings"
)

// Strategy selects how the cells of an output matrix are divided between
// workers. The set is closed; there is no runtime registration.
//
// The numeric value of a Strategy is an in-process detail. The wire
// protocol maps strategies through its own code table and never relies on
// declaration order.
type Strategy int

const (
	// CyclicElement deals individual cells round-robin in row-major order.
	CyclicElement Strategy = iota + 1
	// CyclicRow deals whole rows round-robin.
	CyclicRow
	// Block gives each worker one contiguous rectangle of a near-square grid.
	Block
)

// Strategies lists every strategy, in a stable order.
var Strategies = []Strategy{CyclicElement, CyclicRow, Block}

var strategyNames = map[Strategy]string{
	CyclicElement: "cyclic-element",
	CyclicRow:     "cyclic-row",
	Block:         "block",
}

// aliases accepted by ParseStrategy besides the canonical names; the v1/v2
// names are what the first client tooling used.
var strategyAliases = map[string]Strategy{
	"element":  CyclicElement,
	"cyclicv1": CyclicElement,
	"row":      CyclicRow,
	"cyclicv2": CyclicRow,
	"blockv1":  Block,
}

// String returns the canonical name, e.g. "cyclic-row".
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the three known strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy resolves a canonical name or alias, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == key {
			return s, nil
		}
	}
	if s, ok := strategyAliases[key]; ok {
		return s, nil
	}
	return 0, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
}
