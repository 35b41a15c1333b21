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

// Package importer fills the catalog from external sources: plain M3U
// playlists and upstream Xtream panels. Imports are idempotent upserts
// keyed by name and category, so re-running one refreshes URLs without
// duplicating rows.
package importer

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/buger/jsonparser"
	"github.com/jamesnetherton/m3u"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// Store is the write surface an import needs.
type Store interface {
	CreateBouquet(name string, sortOrder int) (int64, error)
	UpsertCategory(name, kind string, sortOrder int) (int64, error)
	UpsertChannel(ch *types.Channel, bouquetID int64) (int64, error)
	UpsertMovie(mv *types.Movie, bouquetID int64) (int64, error)
	UpsertProgram(p *types.EPGProgram) error
}

// Stats summarizes one import run.
type Stats struct {
	Channels   int
	Movies     int
	Categories int
	Programs   int
}

// Importer loads external playlists into the catalog.
type Importer struct {
	store  Store
	client *http.Client
}

// New builds an importer over the given store.
func New(store Store) *Importer {
	return &Importer{
		store:  store,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

const defaultCategory = "Uncategorized"

// ImportM3U parses an M3U playlist from a URL or local file and loads
// every track as a live channel attached to the named bouquet. Category
// comes from the group-title tag, guide key from tvg-id, logo from
// tvg-logo.
func (i *Importer) ImportM3U(source, bouquetName string) (*Stats, error) {
	playlist, err := m3u.Parse(source)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	utils.InfoLog("Parsed M3U playlist from %s: %d tracks", source, len(playlist.Tracks))

	bouquetID, err := i.store.CreateBouquet(bouquetName, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	categoryIDs := make(map[string]int64)

	for n, track := range playlist.Tracks {
		tags := make(map[string]string, len(track.Tags))
		for _, tag := range track.Tags {
			tags[tag.Name] = tag.Value
		}

		group := tags["group-title"]
		if group == "" {
			group = defaultCategory
		}
		catID, ok := categoryIDs[group]
		if !ok {
			catID, err = i.store.UpsertCategory(group, "live", len(categoryIDs))
			if err != nil {
				return nil, err
			}
			categoryIDs[group] = catID
			stats.Categories++
		}

		channel := &types.Channel{
			Name:         track.Name,
			StreamURL:    track.URI,
			EPGChannelID: tags["tvg-id"],
			CategoryID:   catID,
			LogoURL:      tags["tvg-logo"],
			SortOrder:    n,
		}
		if _, err := i.store.UpsertChannel(channel, bouquetID); err != nil {
			utils.WarnLog("Skipping track %q: %v", track.Name, err)
			continue
		}
		stats.Channels++
	}

	utils.InfoLog("M3U import finished: %d channels, %d categories", stats.Channels, stats.Categories)
	return stats, nil
}

// ImportXtream pulls live channels and VOD from an upstream Xtream panel
// into the named bouquet. Responses are parsed field by field because
// upstream panels disagree about numeric versus string typing.
func (i *Importer) ImportXtream(baseURL, username, password, bouquetName string) (*Stats, error) {
	bouquetID, err := i.store.CreateBouquet(bouquetName, 0)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	liveCats, err := i.importCategories(baseURL, username, password, "get_live_categories", "live", stats)
	if err != nil {
		return nil, err
	}
	movieCats, err := i.importCategories(baseURL, username, password, "get_vod_categories", "movie", stats)
	if err != nil {
		utils.WarnLog("Upstream VOD categories unavailable: %v", err)
		movieCats = map[string]int64{}
	}

	if err := i.importLiveStreams(baseURL, username, password, bouquetID, liveCats, stats); err != nil {
		return nil, err
	}
	if err := i.importVODStreams(baseURL, username, password, bouquetID, movieCats, stats); err != nil {
		utils.WarnLog("Upstream VOD streams unavailable: %v", err)
	}

	utils.InfoLog("Xtream import finished: %d channels, %d movies, %d categories",
		stats.Channels, stats.Movies, stats.Categories)
	return stats, nil
}

// playerAPIGet fetches one player_api action from the upstream panel.
func (i *Importer) playerAPIGet(baseURL, username, password, action string) ([]byte, error) {
	q := url.Values{}
	q.Set("username", username)
	q.Set("password", password)
	q.Set("action", action)
	apiURL := fmt.Sprintf("%s/player_api.php?%s", baseURL, q.Encode())

	resp, err := i.client.Get(apiURL)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("upstream %s returned HTTP %d", action, resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// importCategories loads one category listing and returns upstream
// category_id mapped to our category row ID.
func (i *Importer) importCategories(baseURL, username, password, action, kind string, stats *Stats) (map[string]int64, error) {
	body, err := i.playerAPIGet(baseURL, username, password, action)
	if err != nil {
		return nil, err
	}

	mapping := make(map[string]int64)
	n := 0
	_, err = jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		upstreamID := stringField(value, "category_id")
		name := stringField(value, "category_name")
		if name == "" {
			return
		}
		catID, upsertErr := i.store.UpsertCategory(name, kind, n)
		if upsertErr != nil {
			utils.WarnLog("Skipping category %q: %v", name, upsertErr)
			return
		}
		mapping[upstreamID] = catID
		stats.Categories++
		n++
	})
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	return mapping, nil
}

func (i *Importer) importLiveStreams(baseURL, username, password string, bouquetID int64, cats map[string]int64, stats *Stats) error {
	body, err := i.playerAPIGet(baseURL, username, password, "get_live_streams")
	if err != nil {
		return err
	}

	fallbackCat, err := i.store.UpsertCategory(defaultCategory, "live", len(cats))
	if err != nil {
		return err
	}

	n := 0
	_, err = jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		name := stringField(value, "name")
		if name == "" {
			return
		}
		catID, ok := cats[stringField(value, "category_id")]
		if !ok {
			catID = fallbackCat
		}

		streamID := stringField(value, "stream_id")
		channel := &types.Channel{
			Name:         name,
			StreamURL:    fmt.Sprintf("%s/live/%s/%s/%s.ts", baseURL, username, password, streamID),
			EPGChannelID: stringField(value, "epg_channel_id"),
			CategoryID:   catID,
			LogoURL:      stringField(value, "stream_icon"),
			SortOrder:    n,
		}
		if _, upsertErr := i.store.UpsertChannel(channel, bouquetID); upsertErr != nil {
			utils.WarnLog("Skipping channel %q: %v", name, upsertErr)
			return
		}
		stats.Channels++
		n++
	})
	if err != nil {
		return utils.PrintErrorAndReturn(err)
	}
	return nil
}

func (i *Importer) importVODStreams(baseURL, username, password string, bouquetID int64, cats map[string]int64, stats *Stats) error {
	body, err := i.playerAPIGet(baseURL, username, password, "get_vod_streams")
	if err != nil {
		return err
	}

	fallbackCat, err := i.store.UpsertCategory(defaultCategory, "movie", len(cats))
	if err != nil {
		return err
	}

	n := 0
	_, err = jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		name := stringField(value, "name")
		if name == "" {
			return
		}
		catID, ok := cats[stringField(value, "category_id")]
		if !ok {
			catID = fallbackCat
		}

		ext := stringField(value, "container_extension")
		if ext == "" {
			ext = "mp4"
		}
		streamID := stringField(value, "stream_id")
		movie := &types.Movie{
			Name:         name,
			StreamURL:    fmt.Sprintf("%s/movie/%s/%s/%s.%s", baseURL, username, password, streamID, ext),
			ContainerExt: ext,
			CategoryID:   catID,
			Rating:       stringField(value, "rating"),
			PosterURL:    stringField(value, "stream_icon"),
			SortOrder:    n,
		}
		if _, upsertErr := i.store.UpsertMovie(movie, bouquetID); upsertErr != nil {
			utils.WarnLog("Skipping movie %q: %v", name, upsertErr)
			return
		}
		stats.Movies++
		n++
	})
	if err != nil {
		return utils.PrintErrorAndReturn(err)
	}
	return nil
}

// stringField reads a JSON field that upstream panels send as either a
// string or a number.
func stringField(data []byte, key string) string {
	value, dataType, _, err := jsonparser.Get(data, key)
	if err != nil || dataType == jsonparser.Null {
		return ""
	}
	return string(value)
}
