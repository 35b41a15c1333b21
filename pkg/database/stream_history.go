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

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// OpenStreamSession records a playback redirect. The session counts as an
// active connection until closed or reaped by CloseStaleSessions.
func (m *DBManager) OpenStreamSession(s *types.StreamSession) (int64, error) {
	utils.DebugLog("Database: Recording stream session - user: %s, stream: %d, type: %s",
		s.Username, s.StreamID, s.StreamType)
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var id int64
	err := m.db.QueryRow(`
		INSERT INTO stream_history
		  (session_id, username, stream_id, stream_type, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, s.SessionID, s.Username, s.StreamID, s.StreamType, s.IPAddress, s.UserAgent).Scan(&id)
	if err != nil {
		utils.ErrorLog("Database error recording stream session: %v", err)
		return 0, err
	}
	return id, nil
}

// CloseStreamSession marks a session as ended.
func (m *DBManager) CloseStreamSession(sessionID string) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := m.db.Exec(`
		UPDATE stream_history SET end_time = CURRENT_TIMESTAMP
		WHERE session_id = $1 AND end_time IS NULL
	`, sessionID)
	if err != nil {
		utils.ErrorLog("Database error closing stream session: %v", err)
	}
	return err
}

// ActiveSessionCount returns the number of open sessions for a username.
// The redirect handlers compare this against max_connections.
func (m *DBManager) ActiveSessionCount(username string) (int, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var count int
	err := m.db.QueryRow(`
		SELECT COUNT(*) FROM stream_history
		WHERE username = $1 AND end_time IS NULL
	`, username).Scan(&count)
	if err != nil {
		utils.ErrorLog("Database error counting active sessions: %v", err)
		return 0, err
	}
	return count, nil
}

// CloseStaleSessions ends open sessions older than maxAge. Redirect-based
// playback gives no disconnect signal, so sessions are aged out instead.
func (m *DBManager) CloseStaleSessions(maxAge time.Duration) (int64, error) {
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	result, err := m.db.Exec(`
		UPDATE stream_history SET end_time = CURRENT_TIMESTAMP
		WHERE end_time IS NULL AND start_time < $1
	`, time.Now().Add(-maxAge))
	if err != nil {
		utils.ErrorLog("Database error closing stale sessions: %v", err)
		return 0, err
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		utils.InfoLog("Closed %d stale stream sessions", rows)
	}
	return rows, nil
}

// StreamHistoryStats gets statistics about stream usage for the status API.
func (m *DBManager) StreamHistoryStats() (map[string]interface{}, error) {
	utils.DebugLog("Database: Getting stream history statistics")
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	stats := make(map[string]interface{})
	var totalStreams int
	if err := m.db.QueryRow("SELECT COUNT(*) FROM stream_history").Scan(&totalStreams); err != nil {
		utils.ErrorLog("Database error counting streams: %v", err)
		return nil, err
	}
	stats["total_streams"] = totalStreams

	var activeUsers int
	if err := m.db.QueryRow(`
		SELECT COUNT(DISTINCT username) FROM stream_history WHERE start_time > $1
	`, time.Now().Add(-24*time.Hour)).Scan(&activeUsers); err != nil {
		utils.ErrorLog("Database error counting active users: %v", err)
		return nil, err
	}
	stats["active_users_24h"] = activeUsers

	var openSessions int
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM stream_history WHERE end_time IS NULL`).Scan(&openSessions); err != nil {
		return nil, err
	}
	stats["open_sessions"] = openSessions

	return stats, nil
}
