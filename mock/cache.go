package mock

import "github.com/fwojciec/skim"

// Cache is a test double for skim.Cache.
// Set the function fields for the methods you need.
type Cache struct {
	GetFn        func(id skim.SessionID) (skim.Session, bool)
	PutFn        func(id skim.SessionID, s skim.Session) error
	RemoveFn     func(id skim.SessionID) error
	ListFn       func() []skim.Session
	CurrentFn    func() (skim.SessionID, bool)
	SetCurrentFn func(id skim.SessionID) error
}

// Get delegates to GetFn.
func (c *Cache) Get(id skim.SessionID) (skim.Session, bool) {
	return c.GetFn(id)
}

// Put delegates to PutFn.
func (c *Cache) Put(id skim.SessionID, s skim.Session) error {
	return c.PutFn(id, s)
}

// Remove delegates to RemoveFn.
func (c *Cache) Remove(id skim.SessionID) error {
	return c.RemoveFn(id)
}

// List delegates to ListFn.
func (c *Cache) List() []skim.Session {
	return c.ListFn()
}

// Current delegates to CurrentFn.
func (c *Cache) Current() (skim.SessionID, bool) {
	return c.CurrentFn()
}

// SetCurrent delegates to SetCurrentFn.
func (c *Cache) SetCurrent(id skim.SessionID) error {
	return c.SetCurrentFn(id)
}
