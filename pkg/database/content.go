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

package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// BouquetIDsForSubscriber returns the IDs of all bouquets assigned to a
// subscriber. An account with no bouquets sees no content.
func (m *DBManager) BouquetIDsForSubscriber(subscriberID int64) ([]int64, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`
		SELECT bouquet_id FROM subscriber_bouquets WHERE subscriber_id = $1
	`, subscriberID)
	if err != nil {
		utils.ErrorLog("Database error listing subscriber bouquets: %v", err)
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChannelsForBouquets returns the active, non-hidden channels that belong
// to at least one of the given bouquets, ordered by sort_order.
func (m *DBManager) ChannelsForBouquets(bouquetIDs []int64) ([]types.Channel, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if len(bouquetIDs) == 0 {
		return nil, nil
	}

	rows, err := m.db.Query(`
		SELECT DISTINCT c.id, c.name, c.stream_url, c.epg_channel_id, c.category_id,
		       c.logo_url, c.is_active, c.is_hidden, c.is_online, c.sort_order, c.added_at
		FROM channels c
		JOIN channel_bouquets cb ON cb.channel_id = c.id
		WHERE cb.bouquet_id = ANY($1)
		  AND c.is_active = TRUE
		  AND c.is_hidden = FALSE
		ORDER BY c.sort_order, c.id
	`, pq.Array(bouquetIDs))
	if err != nil {
		utils.ErrorLog("Database error listing channels: %v", err)
		return nil, err
	}
	defer rows.Close()

	var channels []types.Channel
	for rows.Next() {
		var ch types.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.StreamURL, &ch.EPGChannelID,
			&ch.CategoryID, &ch.LogoURL, &ch.IsActive, &ch.IsHidden,
			&ch.IsOnline, &ch.SortOrder, &ch.AddedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// MoviesForBouquets returns the active movies visible through the given bouquets.
func (m *DBManager) MoviesForBouquets(bouquetIDs []int64) ([]types.Movie, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if len(bouquetIDs) == 0 {
		return nil, nil
	}

	rows, err := m.db.Query(`
		SELECT DISTINCT v.id, v.name, v.stream_url, v.container_ext, v.category_id,
		       v.rating, v.poster_url, v.is_active, v.sort_order, v.added_at
		FROM movies v
		JOIN movie_bouquets vb ON vb.movie_id = v.id
		WHERE vb.bouquet_id = ANY($1)
		  AND v.is_active = TRUE
		ORDER BY v.sort_order, v.id
	`, pq.Array(bouquetIDs))
	if err != nil {
		utils.ErrorLog("Database error listing movies: %v", err)
		return nil, err
	}
	defer rows.Close()

	var movies []types.Movie
	for rows.Next() {
		var mv types.Movie
		if err := rows.Scan(&mv.ID, &mv.Name, &mv.StreamURL, &mv.ContainerExt,
			&mv.CategoryID, &mv.Rating, &mv.PosterURL, &mv.IsActive,
			&mv.SortOrder, &mv.AddedAt); err != nil {
			return nil, err
		}
		movies = append(movies, mv)
	}
	return movies, rows.Err()
}

// SeriesForBouquets returns the active series visible through the given bouquets.
func (m *DBManager) SeriesForBouquets(bouquetIDs []int64) ([]types.Series, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if len(bouquetIDs) == 0 {
		return nil, nil
	}

	rows, err := m.db.Query(`
		SELECT DISTINCT s.id, s.name, s.category_id, s.rating, s.poster_url,
		       s.is_active, s.sort_order, s.added_at
		FROM series s
		JOIN series_bouquets sb ON sb.series_id = s.id
		WHERE sb.bouquet_id = ANY($1)
		  AND s.is_active = TRUE
		ORDER BY s.sort_order, s.id
	`, pq.Array(bouquetIDs))
	if err != nil {
		utils.ErrorLog("Database error listing series: %v", err)
		return nil, err
	}
	defer rows.Close()

	var series []types.Series
	for rows.Next() {
		var sr types.Series
		if err := rows.Scan(&sr.ID, &sr.Name, &sr.CategoryID, &sr.Rating,
			&sr.PosterURL, &sr.IsActive, &sr.SortOrder, &sr.AddedAt); err != nil {
			return nil, err
		}
		series = append(series, sr)
	}
	return series, rows.Err()
}

// EpisodesForSeries returns all episodes of one series ordered by
// season and episode number.
func (m *DBManager) EpisodesForSeries(seriesID int64) ([]types.Episode, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`
		SELECT id, series_id, season, episode, title, stream_url, container_ext, added_at
		FROM episodes
		WHERE series_id = $1
		ORDER BY season, episode
	`, seriesID)
	if err != nil {
		utils.ErrorLog("Database error listing episodes: %v", err)
		return nil, err
	}
	defer rows.Close()

	var episodes []types.Episode
	for rows.Next() {
		var ep types.Episode
		if err := rows.Scan(&ep.ID, &ep.SeriesID, &ep.Season, &ep.Episode,
			&ep.Title, &ep.StreamURL, &ep.ContainerExt, &ep.AddedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// EpisodeByID fetches a single episode, or nil when none exists.
func (m *DBManager) EpisodeByID(episodeID int64) (*types.Episode, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var ep types.Episode
	err := m.db.QueryRow(`
		SELECT id, series_id, season, episode, title, stream_url, container_ext, added_at
		FROM episodes
		WHERE id = $1
	`, episodeID).Scan(&ep.ID, &ep.SeriesID, &ep.Season, &ep.Episode,
		&ep.Title, &ep.StreamURL, &ep.ContainerExt, &ep.AddedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		utils.ErrorLog("Database error fetching episode %d: %v", episodeID, err)
		return nil, err
	}
	return &ep, nil
}

// Categories returns all categories of one kind ordered by sort_order.
func (m *DBManager) Categories(kind string) ([]types.Category, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`
		SELECT id, name, kind, sort_order FROM categories
		WHERE kind = $1
		ORDER BY sort_order, id
	`, kind)
	if err != nil {
		utils.ErrorLog("Database error listing categories: %v", err)
		return nil, err
	}
	defer rows.Close()

	var categories []types.Category
	for rows.Next() {
		var cat types.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Kind, &cat.SortOrder); err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// ListBouquets returns all bouquets ordered by sort_order.
func (m *DBManager) ListBouquets() ([]types.Bouquet, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`SELECT id, name, sort_order FROM bouquets ORDER BY sort_order, id`)
	if err != nil {
		utils.ErrorLog("Database error listing bouquets: %v", err)
		return nil, err
	}
	defer rows.Close()

	var bouquets []types.Bouquet
	for rows.Next() {
		var b types.Bouquet
		if err := rows.Scan(&b.ID, &b.Name, &b.SortOrder); err != nil {
			return nil, err
		}
		bouquets = append(bouquets, b)
	}
	return bouquets, rows.Err()
}

// CreateBouquet inserts a bouquet and returns its ID. Existing names are reused.
func (m *DBManager) CreateBouquet(name string, sortOrder int) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var id int64
	err := m.db.QueryRow(`
		INSERT INTO bouquets (name, sort_order)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET sort_order = EXCLUDED.sort_order
		RETURNING id
	`, name, sortOrder).Scan(&id)
	if err != nil {
		utils.ErrorLog("Database error creating bouquet: %v", err)
		return 0, err
	}
	return id, nil
}
