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
	"time"

	"github.com/lib/pq"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// ProgramsForKeys returns all guide entries whose channel key is in keys
// and whose time window overlaps [from, to), ordered by channel then start.
func (m *DBManager) ProgramsForKeys(keys []string, from, to time.Time) ([]types.EPGProgram, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := m.db.Query(`
		SELECT id, epg_channel_id, title, description, start_time, stop_time
		FROM epg_programs
		WHERE epg_channel_id = ANY($1)
		  AND stop_time > $2
		  AND start_time < $3
		ORDER BY epg_channel_id, start_time
	`, pq.Array(keys), from, to)
	if err != nil {
		utils.ErrorLog("Database error listing EPG programs: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanPrograms(rows)
}

// ShortEPG returns the next few guide entries for one channel key,
// starting from "now", limited to limit rows. Used by get_short_epg.
func (m *DBManager) ShortEPG(key string, now time.Time, limit int) ([]types.EPGProgram, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 4
	}

	rows, err := m.db.Query(`
		SELECT id, epg_channel_id, title, description, start_time, stop_time
		FROM epg_programs
		WHERE epg_channel_id = $1
		  AND stop_time > $2
		ORDER BY start_time
		LIMIT $3
	`, key, now, limit)
	if err != nil {
		utils.ErrorLog("Database error listing short EPG: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanPrograms(rows)
}

// AllProgramsForKey returns the full stored guide for one channel key.
// Used by get_simple_data_table.
func (m *DBManager) AllProgramsForKey(key string) ([]types.EPGProgram, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`
		SELECT id, epg_channel_id, title, description, start_time, stop_time
		FROM epg_programs
		WHERE epg_channel_id = $1
		ORDER BY start_time
	`, key)
	if err != nil {
		utils.ErrorLog("Database error listing EPG table: %v", err)
		return nil, err
	}
	defer rows.Close()

	return scanPrograms(rows)
}

// UpsertProgram stores one guide entry, replacing an entry with the same
// key and start time.
func (m *DBManager) UpsertProgram(p *types.EPGProgram) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Delete-then-insert keeps the table free of duplicate key/start pairs
	// without requiring a unique constraint on a timestamp column.
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint: errcheck

	if _, err := tx.Exec(`
		DELETE FROM epg_programs WHERE epg_channel_id = $1 AND start_time = $2
	`, p.EPGChannelID, p.Start); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO epg_programs (epg_channel_id, title, description, start_time, stop_time)
		VALUES ($1, $2, $3, $4, $5)
	`, p.EPGChannelID, p.Title, p.Description, p.Start, p.Stop); err != nil {
		utils.ErrorLog("Database error upserting EPG program: %v", err)
		return err
	}
	return tx.Commit()
}

// PruneExpiredPrograms removes guide entries that ended before the cutoff.
func (m *DBManager) PruneExpiredPrograms(cutoff time.Time) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	result, err := m.db.Exec(`DELETE FROM epg_programs WHERE stop_time < $1`, cutoff)
	if err != nil {
		utils.ErrorLog("Database error pruning EPG programs: %v", err)
		return 0, err
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		utils.InfoLog("Pruned %d expired EPG programs", rows)
	}
	return rows, nil
}

func scanPrograms(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]types.EPGProgram, error) {
	var programs []types.EPGProgram
	for rows.Next() {
		var p types.EPGProgram
		if err := rows.Scan(&p.ID, &p.EPGChannelID, &p.Title, &p.Description, &p.Start, &p.Stop); err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}
