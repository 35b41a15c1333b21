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

// Package resolver computes the content set a subscriber is entitled to
// see: the union of all assigned bouquets, filtered to active visible
// entries. Resolution hits the database once per subscriber per TTL
// window; every emitter consumes the same memoized snapshot so a playlist
// and the EPG generated seconds apart never disagree.
package resolver

import (
	"fmt"
	"time"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// DefaultTTL is the memoization window when none is configured.
const DefaultTTL = 5 * time.Minute

// ResolvedContent is one subscriber's visible catalog snapshot.
type ResolvedContent struct {
	Username   string            `json:"username"`
	Channels   []types.Channel   `json:"channels"`
	Movies     []types.Movie     `json:"movies"`
	Series     []types.Series    `json:"series"`
	Categories []types.Category  `json:"categories"`
	ResolvedAt time.Time         `json:"resolved_at"`
}

// ChannelByID finds a channel in the snapshot.
func (rc *ResolvedContent) ChannelByID(id int64) (*types.Channel, bool) {
	for i := range rc.Channels {
		if rc.Channels[i].ID == id {
			return &rc.Channels[i], true
		}
	}
	return nil, false
}

// MovieByID finds a movie in the snapshot.
func (rc *ResolvedContent) MovieByID(id int64) (*types.Movie, bool) {
	for i := range rc.Movies {
		if rc.Movies[i].ID == id {
			return &rc.Movies[i], true
		}
	}
	return nil, false
}

// SeriesByID finds a series in the snapshot.
func (rc *ResolvedContent) SeriesByID(id int64) (*types.Series, bool) {
	for i := range rc.Series {
		if rc.Series[i].ID == id {
			return &rc.Series[i], true
		}
	}
	return nil, false
}

// EPGChannelIDs returns the distinct non-empty guide keys of the snapshot,
// in channel order.
func (rc *ResolvedContent) EPGChannelIDs() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, ch := range rc.Channels {
		if ch.EPGChannelID == "" || seen[ch.EPGChannelID] {
			continue
		}
		seen[ch.EPGChannelID] = true
		keys = append(keys, ch.EPGChannelID)
	}
	return keys
}

// ContentStore is the database surface the resolver reads from.
type ContentStore interface {
	BouquetIDsForSubscriber(subscriberID int64) ([]int64, error)
	ChannelsForBouquets(bouquetIDs []int64) ([]types.Channel, error)
	MoviesForBouquets(bouquetIDs []int64) ([]types.Movie, error)
	SeriesForBouquets(bouquetIDs []int64) ([]types.Series, error)
	Categories(kind string) ([]types.Category, error)
}

// Cache stores resolved snapshots per subscriber with a TTL.
type Cache interface {
	Get(username string) (*ResolvedContent, bool)
	Set(username string, content *ResolvedContent, ttl time.Duration)
	Delete(username string)
}

// ContentResolver answers "what can this subscriber see" with read-through
// memoization.
type ContentResolver struct {
	store ContentStore
	cache Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewContentResolver builds a resolver. A nil cache gets an in-memory one;
// a zero ttl gets DefaultTTL.
func NewContentResolver(store ContentStore, cache Cache, ttl time.Duration) *ContentResolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ContentResolver{store: store, cache: cache, ttl: ttl, now: time.Now}
}

// Resolve returns the subscriber's visible content, from cache when a
// snapshot younger than the TTL exists. A subscriber with no bouquets
// resolves to an empty snapshot, not an error.
func (r *ContentResolver) Resolve(sub *types.Subscriber) (*ResolvedContent, error) {
	if cached, ok := r.cache.Get(sub.Username); ok {
		utils.DebugLog("Resolver cache hit for %s (%d channels)", sub.Username, len(cached.Channels))
		return cached, nil
	}

	content, err := r.resolve(sub)
	if err != nil {
		return nil, err
	}
	r.cache.Set(sub.Username, content, r.ttl)
	return content, nil
}

// Invalidate drops the cached snapshot so the next Resolve sees fresh
// assignments. Best effort: a failed delete only delays visibility until
// the TTL expires.
func (r *ContentResolver) Invalidate(username string) {
	utils.DebugLog("Resolver cache invalidate for %s", username)
	r.cache.Delete(username)
}

func (r *ContentResolver) resolve(sub *types.Subscriber) (*ResolvedContent, error) {
	start := r.now()
	bouquetIDs, err := r.store.BouquetIDsForSubscriber(sub.ID)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("resolving bouquets for %s: %w", sub.Username, err))
	}

	content := &ResolvedContent{Username: sub.Username, ResolvedAt: start}
	if len(bouquetIDs) == 0 {
		utils.DebugLog("Subscriber %s has no bouquets, empty catalog", sub.Username)
		return content, nil
	}

	if content.Channels, err = r.store.ChannelsForBouquets(bouquetIDs); err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	if content.Movies, err = r.store.MoviesForBouquets(bouquetIDs); err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	if content.Series, err = r.store.SeriesForBouquets(bouquetIDs); err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}

	// Only categories that actually contain visible content are exported.
	content.Categories = r.visibleCategories(content)

	utils.InfoLog("Resolved catalog for %s: %d channels, %d movies, %d series in %v",
		sub.Username, len(content.Channels), len(content.Movies), len(content.Series), time.Since(start))
	return content, nil
}

func (r *ContentResolver) visibleCategories(content *ResolvedContent) []types.Category {
	used := make(map[int64]bool)
	for _, ch := range content.Channels {
		used[ch.CategoryID] = true
	}
	for _, mv := range content.Movies {
		used[mv.CategoryID] = true
	}
	for _, sr := range content.Series {
		used[sr.CategoryID] = true
	}

	var out []types.Category
	for _, kind := range []string{"live", "movie", "series"} {
		cats, err := r.store.Categories(kind)
		if err != nil {
			utils.WarnLog("Listing %s categories failed: %v", kind, err)
			continue
		}
		for _, c := range cats {
			if used[c.ID] {
				out = append(out, c)
			}
		}
	}
	return out
}
