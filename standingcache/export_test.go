package standingcache

// InFlightMembers returns how many members currently have a load in progress.
func InFlightMembers(c *Cache) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.inflight)
}
