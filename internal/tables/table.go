// Package tables provides the weighted roll tables that failed great-wound
// saves draw from. Tables are defined in YAML content files and registered by
// name; a draw is itself a dice roll against the table's total weight.
package tables

import (
	"fmt"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/dice"
)

// Entry is one weighted row of a roll table.
type Entry struct {
	// Weight is the number of faces this entry occupies on the table die.
	Weight int `yaml:"weight"`
	// Item is the payload attached to the actor when this entry is drawn.
	Item actor.Item `yaml:"item"`
}

// Table is a named weighted roll table.
type Table struct {
	Name    string  `yaml:"name"`
	Entries []Entry `yaml:"entries"`
}

// Validate checks the table's invariants.
//
// Postcondition: Returns nil iff the table has a name, at least one entry,
// and every entry has weight >= 1 and a non-empty item id.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("roll table: name must not be empty")
	}
	if len(t.Entries) == 0 {
		return fmt.Errorf("roll table %q: must have at least one entry", t.Name)
	}
	for i, e := range t.Entries {
		if e.Weight < 1 {
			return fmt.Errorf("roll table %q: entry[%d] weight must be >= 1, got %d", t.Name, i, e.Weight)
		}
		if e.Item.ID == "" {
			return fmt.Errorf("roll table %q: entry[%d] must have a non-empty item id", t.Name, i)
		}
	}
	return nil
}

// TotalWeight returns the sum of all entry weights.
func (t *Table) TotalWeight() int {
	total := 0
	for _, e := range t.Entries {
		total += e.Weight
	}
	return total
}

// Result is the outcome of a single table draw.
type Result struct {
	// Item is the drawn entry's payload.
	Item actor.Item
	// Roll is the audit trail of the table die.
	Roll dice.RollResult
}

// Draw rolls once against the table's total weight and returns the entry
// whose weight band covers the rolled value.
//
// Precondition: t must have passed Validate(); roller must be non-nil.
// Postcondition: Returns the drawn Result or a non-nil error.
func (t *Table) Draw(roller *dice.Roller) (Result, error) {
	total := t.TotalWeight()
	if total == 1 {
		// Single-face table: no die to roll.
		return Result{
			Item: t.Entries[0].Item,
			Roll: dice.RollResult{Expression: "1d1", Dice: []int{1}},
		}, nil
	}
	roll, err := roller.RollExpr(fmt.Sprintf("1d%d", total))
	if err != nil {
		return Result{}, fmt.Errorf("drawing from table %q: %w", t.Name, err)
	}

	remaining := roll.Total()
	for _, e := range t.Entries {
		remaining -= e.Weight
		if remaining <= 0 {
			return Result{Item: e.Item, Roll: roll}, nil
		}
	}
	// Unreachable when the roll is within [1, total].
	return Result{}, fmt.Errorf("drawing from table %q: roll %d out of range", t.Name, roll.Total())
}
