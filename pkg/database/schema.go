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

	"github.com/lucasduport/stream-panel/pkg/utils"
)

// schemaStatements creates the panel tables. Membership tables are plain
// join tables; EPG programs deliberately carry no foreign key to channels,
// the join is by matching epg_channel_id string keys.
var schemaStatements = []struct {
	name string
	stmt string
}{
	{"subscribers", `
		CREATE TABLE IF NOT EXISTS subscribers (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'guest',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_trial BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMP,
			max_connections INTEGER NOT NULL DEFAULT 1,
			output_formats TEXT[] NOT NULL DEFAULT '{m3u8,ts}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"bouquets", `
		CREATE TABLE IF NOT EXISTS bouquets (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			sort_order INTEGER NOT NULL DEFAULT 0
		)
	`},
	{"subscriber_bouquets", `
		CREATE TABLE IF NOT EXISTS subscriber_bouquets (
			subscriber_id INTEGER NOT NULL REFERENCES subscribers(id),
			bouquet_id INTEGER NOT NULL REFERENCES bouquets(id),
			PRIMARY KEY (subscriber_id, bouquet_id)
		)
	`},
	{"categories", `
		CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT 'live',
			sort_order INTEGER NOT NULL DEFAULT 0,
			UNIQUE (name, kind)
		)
	`},
	{"channels", `
		CREATE TABLE IF NOT EXISTS channels (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			stream_url TEXT NOT NULL,
			epg_channel_id TEXT NOT NULL DEFAULT '',
			category_id INTEGER NOT NULL DEFAULT 0,
			logo_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
			is_online BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"channel_bouquets", `
		CREATE TABLE IF NOT EXISTS channel_bouquets (
			channel_id INTEGER NOT NULL REFERENCES channels(id),
			bouquet_id INTEGER NOT NULL REFERENCES bouquets(id),
			PRIMARY KEY (channel_id, bouquet_id)
		)
	`},
	{"movies", `
		CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			stream_url TEXT NOT NULL,
			container_ext TEXT NOT NULL DEFAULT 'mp4',
			category_id INTEGER NOT NULL DEFAULT 0,
			rating TEXT NOT NULL DEFAULT '',
			poster_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"movie_bouquets", `
		CREATE TABLE IF NOT EXISTS movie_bouquets (
			movie_id INTEGER NOT NULL REFERENCES movies(id),
			bouquet_id INTEGER NOT NULL REFERENCES bouquets(id),
			PRIMARY KEY (movie_id, bouquet_id)
		)
	`},
	{"series", `
		CREATE TABLE IF NOT EXISTS series (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			category_id INTEGER NOT NULL DEFAULT 0,
			rating TEXT NOT NULL DEFAULT '',
			poster_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INTEGER NOT NULL DEFAULT 0,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"series_bouquets", `
		CREATE TABLE IF NOT EXISTS series_bouquets (
			series_id INTEGER NOT NULL REFERENCES series(id),
			bouquet_id INTEGER NOT NULL REFERENCES bouquets(id),
			PRIMARY KEY (series_id, bouquet_id)
		)
	`},
	{"episodes", `
		CREATE TABLE IF NOT EXISTS episodes (
			id SERIAL PRIMARY KEY,
			series_id INTEGER NOT NULL REFERENCES series(id),
			season INTEGER NOT NULL,
			episode INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			stream_url TEXT NOT NULL,
			container_ext TEXT NOT NULL DEFAULT 'mp4',
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (series_id, season, episode)
		)
	`},
	{"epg_programs", `
		CREATE TABLE IF NOT EXISTS epg_programs (
			id SERIAL PRIMARY KEY,
			epg_channel_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMP NOT NULL,
			stop_time TIMESTAMP NOT NULL
		)
	`},
	{"stream_history", `
		CREATE TABLE IF NOT EXISTS stream_history (
			id SERIAL PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			stream_id INTEGER NOT NULL,
			stream_type TEXT NOT NULL,
			start_time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			end_time TIMESTAMP,
			ip_address TEXT,
			user_agent TEXT
		)
	`},
}

// initSchema creates database tables if they don't exist
func (m *DBManager) initSchema() error {
	utils.InfoLog("Initializing database schema")

	for _, s := range schemaStatements {
		if _, err := m.db.Exec(s.stmt); err != nil {
			utils.ErrorLog("Failed to create %s table: %v", s.name, err)
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	// Index to make the string-key EPG join cheap.
	if _, err := m.db.Exec(`CREATE INDEX IF NOT EXISTS epg_programs_channel_idx
		ON epg_programs (epg_channel_id, start_time)`); err != nil {
		utils.WarnLog("Failed to create epg_programs index: %v", err)
	}

	var count int
	err := m.db.QueryRow(`SELECT count(*)
		FROM information_schema.tables
		WHERE table_name IN ('subscribers', 'bouquets', 'channels', 'epg_programs', 'stream_history')`).Scan(&count)
	if err != nil {
		utils.WarnLog("Failed to verify tables were created: %v", err)
	} else {
		utils.InfoLog("Database verification: %d of 5 core tables exist", count)
	}

	utils.InfoLog("Database schema initialized successfully")
	return nil
}
