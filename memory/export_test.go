package memory

import "github.com/fwojciec/skim"

// PutRaw stores data verbatim under id, so tests can plant corrupt entries.
func (c *Cache) PutRaw(id skim.SessionID, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[skim.Key(id)] = data
}
