package core

// ChatContext is the ordered conversation history a role accumulates. It is
// owned by exactly one role and mutated only between model turns, so it is
// intentionally not safe for concurrent use: a session processes turns
// sequentially and the router holds no locks.
//
// Contract:
//   - Items returns a defensive copy to avoid external mutation
//   - Append deduplicates by item identifier against existing content, so a
//     context never holds two items with the same ID
//   - Copy produces an independent context sharing the (immutable) items.
type ChatContext struct {
	items []Item
	seen  map[string]struct{}
}

// NewChatContext creates an empty chat context.
func NewChatContext() *ChatContext {
	return &ChatContext{seen: map[string]struct{}{}}
}

// Len returns the number of items in the context.
func (c *ChatContext) Len() int { return len(c.items) }

// Items returns a copy of the item slice to prevent callers from mutating
// internal state.
func (c *ChatContext) Items() []Item {
	items := make([]Item, len(c.items))
	copy(items, c.items)
	return items
}

// Contains reports whether an item with the given identifier is present.
func (c *ChatContext) Contains(id string) bool {
	_, ok := c.seen[id]
	return ok
}

// AddMessage appends a new role-attributed text message and returns it.
func (c *ChatContext) AddMessage(role, text string) Message {
	msg := NewMessage(role, text)
	c.add(msg)
	return msg
}

// AddItem appends a single item, skipping it if its ID is already present.
// It reports whether the item was added.
func (c *ChatContext) AddItem(it Item) bool {
	if c.Contains(it.ItemID()) {
		return false
	}
	c.add(it)
	return true
}

// Append adds the given items in order, skipping any whose identifier the
// context already holds. It returns the number of items actually appended.
func (c *ChatContext) Append(items []Item) int {
	added := 0
	for _, it := range items {
		if c.AddItem(it) {
			added++
		}
	}
	return added
}

// Copy returns an independent chat context holding the same items. Items are
// value types, so the copies never alias mutable state.
func (c *ChatContext) Copy() *ChatContext {
	cp := NewChatContext()
	cp.Append(c.items)
	return cp
}

func (c *ChatContext) add(it Item) {
	c.items = append(c.items, it)
	c.seen[it.ItemID()] = struct{}{}
}
