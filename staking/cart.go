package staking

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// CartEntry is a delegation the user is viewing or editing
type CartEntry struct {
	ID       ValidatorID
	Delegate Candidate
	Amount   decimal.Decimal
}

// Cart holds delegations being edited before submission, plus the total
// balance shown next to them. Entries are unique by ID.
type Cart struct {
	mu           sync.RWMutex
	entries      map[ValidatorID]CartEntry
	totalBalance decimal.Decimal
}

// NewCart returns an empty cart
func NewCart() *Cart {
	return &Cart{entries: make(map[ValidatorID]CartEntry)}
}

// Add inserts c with a zero amount unless an entry with the same ID exists.
// It reports whether an entry was inserted.
func (c *Cart) Add(candidate Candidate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[candidate.ID]; ok {
		return false
	}
	c.entries[candidate.ID] = CartEntry{
		ID:       candidate.ID,
		Delegate: candidate,
		Amount:   decimal.Zero,
	}
	return true
}

// Remove deletes the entry for id, if any
func (c *Cart) Remove(id ValidatorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// SetAmount sets the amount of an existing entry. A missing entry is a caller bug.
func (c *Cart) SetAmount(id ValidatorID, value decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("%w: cart entry %s", ErrNotFound, id)
	}
	entry.Amount = value
	c.entries[id] = entry
	return nil
}

// SetTotalBalance replaces the available balance figure
func (c *Cart) SetTotalBalance(value decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalBalance = value
}

// AddToTotalBalance shifts the available balance by delta and returns the new value
func (c *Cart) AddToTotalBalance(delta decimal.Decimal) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalBalance = c.totalBalance.Add(delta)
	return c.totalBalance
}

// TotalBalance returns the available balance figure
func (c *Cart) TotalBalance() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalBalance
}

// Entry returns the entry for id
func (c *Cart) Entry(id ValidatorID) (CartEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	return entry, ok
}

// Find returns the first entry whose candidate is the validator addr
func (c *Cart) Find(addr ValidatorID) (CartEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if entry, ok := c.entries[addr]; ok && entry.Delegate.matches(addr) {
		return entry, true
	}
	for _, entry := range c.entries {
		if entry.Delegate.matches(addr) {
			return entry, true
		}
	}
	return CartEntry{}, false
}

// Entries returns a copy of all entries ordered by ID
func (c *Cart) Entries() []CartEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]CartEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Len returns the number of entries
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry and zeroes the balance
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ValidatorID]CartEntry)
	c.totalBalance = decimal.Zero
}
