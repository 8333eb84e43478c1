package router

import "github.com/magalia-labs/voicemesh/core"

// Truncate returns the items carried over to a role on handoff. It is a
// pure function; the input slice is never mutated.
//
// Walking from newest to oldest it keeps at most keepLastN items, skipping
// system messages unless keepSystemMessages is set and function call/output
// records unless keepFunctionCalls is set. The kept items are returned in
// chronological order. A result never starts with a function item: a
// function call whose preceding context was truncated away would present
// the next model with an orphaned tool exchange, so leading function items
// are dropped.
func Truncate(items []core.Item, keepLastN int, keepSystemMessages, keepFunctionCalls bool) []core.Item {
	if keepLastN <= 0 {
		return nil
	}

	valid := func(it core.Item) bool {
		if msg, ok := it.(core.Message); ok {
			return keepSystemMessages || msg.Role != core.RoleSystem
		}
		if core.IsFunctionItem(it) {
			return keepFunctionCalls
		}
		return true
	}

	kept := make([]core.Item, 0, keepLastN)
	for i := len(items) - 1; i >= 0 && len(kept) < keepLastN; i-- {
		if valid(items[i]) {
			kept = append(kept, items[i])
		}
	}

	// Restore chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	// Drop leading orphaned function items.
	for len(kept) > 0 && core.IsFunctionItem(kept[0]) {
		kept = kept[1:]
	}

	return kept
}
