package sqlite

import "github.com/fwojciec/skim"

// PutRaw stores value verbatim under id, so tests can plant corrupt rows.
func (c *Cache) PutRaw(id skim.SessionID, value string) error {
	return c.write(sessionKey(id), value)
}
