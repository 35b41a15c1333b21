/*
 * stream-panel is an IPTV subscription and playlist emulation service.
 * Copyright (C) 2025  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package resolver

import (
	"sync"
	"time"
)

type memoryEntry struct {
	content   *ResolvedContent
	expiresAt time.Time
}

// MemoryCache is the default per-process snapshot cache.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns a snapshot if present and not expired.
func (c *MemoryCache) Get(username string) (*ResolvedContent, bool) {
	c.mutex.RLock()
	entry, ok := c.entries[username]
	c.mutex.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.content, true
}

// Set stores a snapshot, replacing any previous one for the username.
func (c *MemoryCache) Set(username string, content *ResolvedContent, ttl time.Duration) {
	c.mutex.Lock()
	c.entries[username] = memoryEntry{content: content, expiresAt: time.Now().Add(ttl)}
	c.mutex.Unlock()
}

// Delete removes a snapshot.
func (c *MemoryCache) Delete(username string) {
	c.mutex.Lock()
	delete(c.entries, username)
	c.mutex.Unlock()
}

// Cleanup removes expired entries. Call it periodically; Get never
// returns them either way, Cleanup only releases the memory.
func (c *MemoryCache) Cleanup() int {
	now := time.Now()
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for username, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, username)
			removed++
		}
	}
	return removed
}
