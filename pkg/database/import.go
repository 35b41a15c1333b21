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
	"fmt"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// UpsertCategory inserts a category or reuses one with the same name and
// kind, returning its ID.
func (m *DBManager) UpsertCategory(name, kind string, sortOrder int) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var id int64
	err := m.db.QueryRow(`
		INSERT INTO categories (name, kind, sort_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (name, kind) DO UPDATE SET sort_order = EXCLUDED.sort_order
		RETURNING id
	`, name, kind, sortOrder).Scan(&id)
	if err != nil {
		utils.ErrorLog("Database error upserting category: %v", err)
		return 0, err
	}
	return id, nil
}

// UpsertChannel inserts a channel or updates the existing row with the
// same name and category, then attaches it to the bouquet. Imports are
// idempotent: re-running with the same playlist leaves one row per channel.
func (m *DBManager) UpsertChannel(ch *types.Channel, bouquetID int64) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // nolint: errcheck

	var id int64
	err = tx.QueryRow(`
		SELECT id FROM channels WHERE name = $1 AND category_id = $2
	`, ch.Name, ch.CategoryID).Scan(&id)
	switch {
	case err == nil:
		if _, err := tx.Exec(`
			UPDATE channels SET stream_url = $2, epg_channel_id = $3, logo_url = $4, sort_order = $5
			WHERE id = $1
		`, id, ch.StreamURL, ch.EPGChannelID, ch.LogoURL, ch.SortOrder); err != nil {
			return 0, err
		}
	default:
		if err := tx.QueryRow(`
			INSERT INTO channels (name, stream_url, epg_channel_id, category_id, logo_url, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, ch.Name, ch.StreamURL, ch.EPGChannelID, ch.CategoryID, ch.LogoURL, ch.SortOrder).Scan(&id); err != nil {
			utils.ErrorLog("Database error inserting channel: %v", err)
			return 0, err
		}
	}

	if bouquetID != 0 {
		if _, err := tx.Exec(`
			INSERT INTO channel_bouquets (channel_id, bouquet_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, id, bouquetID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpsertMovie inserts or updates a movie by name/category and attaches it
// to the bouquet.
func (m *DBManager) UpsertMovie(mv *types.Movie, bouquetID int64) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() // nolint: errcheck

	var id int64
	err = tx.QueryRow(`
		SELECT id FROM movies WHERE name = $1 AND category_id = $2
	`, mv.Name, mv.CategoryID).Scan(&id)
	switch {
	case err == nil:
		if _, err := tx.Exec(`
			UPDATE movies SET stream_url = $2, container_ext = $3, rating = $4, poster_url = $5, sort_order = $6
			WHERE id = $1
		`, id, mv.StreamURL, mv.ContainerExt, mv.Rating, mv.PosterURL, mv.SortOrder); err != nil {
			return 0, err
		}
	default:
		if err := tx.QueryRow(`
			INSERT INTO movies (name, stream_url, container_ext, category_id, rating, poster_url, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`, mv.Name, mv.StreamURL, mv.ContainerExt, mv.CategoryID, mv.Rating, mv.PosterURL, mv.SortOrder).Scan(&id); err != nil {
			utils.ErrorLog("Database error inserting movie: %v", err)
			return 0, err
		}
	}

	if bouquetID != 0 {
		if _, err := tx.Exec(`
			INSERT INTO movie_bouquets (movie_id, bouquet_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, id, bouquetID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}
