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
	"time"

	"github.com/lib/pq"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

const subscriberColumns = `id, username, password, role, is_active, is_trial,
	expires_at, max_connections, output_formats, created_at`

func scanSubscriber(row interface{ Scan(...interface{}) error }) (*types.Subscriber, error) {
	sub := &types.Subscriber{}
	var expires sql.NullTime
	err := row.Scan(&sub.ID, &sub.Username, &sub.Password, &sub.Role,
		&sub.IsActive, &sub.IsTrial, &expires, &sub.MaxConnections,
		pq.Array(&sub.OutputFormats), &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		sub.ExpiresAt = &t
	}
	return sub, nil
}

// GetSubscriberByUsername returns the subscriber row for a username, or
// sql.ErrNoRows wrapped when no such account exists.
func (m *DBManager) GetSubscriberByUsername(username string) (*types.Subscriber, error) {
	utils.DebugLog("Database: Looking up subscriber %s", username)
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	sub, err := scanSubscriber(m.db.QueryRow(
		`SELECT `+subscriberColumns+` FROM subscribers WHERE username = $1`, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subscriber %q not found: %w", username, err)
	}
	if err != nil {
		utils.ErrorLog("Database error looking up subscriber: %v", err)
		return nil, err
	}
	return sub, nil
}

// CreateSubscriber inserts a new account and returns its ID. The role
// defaults to guest until a bouquet is assigned.
func (m *DBManager) CreateSubscriber(sub *types.Subscriber) (int64, error) {
	utils.DebugLog("Database: Creating subscriber %s", sub.Username)
	if m == nil || m.db == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	role := sub.Role
	if role == "" {
		role = types.RoleGuest
	}
	maxConns := sub.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	formats := sub.OutputFormats
	if len(formats) == 0 {
		formats = []string{"m3u8", "ts"}
	}

	var id int64
	err := m.db.QueryRow(`
		INSERT INTO subscribers (username, password, role, is_active, is_trial, expires_at, max_connections, output_formats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, sub.Username, sub.Password, role, sub.IsActive, sub.IsTrial,
		sub.ExpiresAt, maxConns, pq.Array(formats)).Scan(&id)
	if err != nil {
		utils.ErrorLog("Database error creating subscriber: %v", err)
		return 0, err
	}
	utils.InfoLog("Created subscriber %s (id=%d, role=%s)", sub.Username, id, role)
	return id, nil
}

// ListSubscribers returns all accounts ordered by username.
func (m *DBManager) ListSubscribers() ([]types.Subscriber, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`SELECT ` + subscriberColumns + ` FROM subscribers ORDER BY username`)
	if err != nil {
		utils.ErrorLog("Database error listing subscribers: %v", err)
		return nil, err
	}
	defer rows.Close()

	var subs []types.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			utils.ErrorLog("Database error scanning subscriber: %v", err)
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// AssignBouquet links a bouquet to a subscriber and applies the
// guest-to-member promotion in the same transaction.
func (m *DBManager) AssignBouquet(username string, bouquetID int64) (*types.Subscriber, error) {
	utils.DebugLog("Database: Assigning bouquet %d to %s", bouquetID, username)
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // nolint: errcheck

	sub, err := scanSubscriber(tx.QueryRow(
		`SELECT `+subscriberColumns+` FROM subscribers WHERE username = $1 FOR UPDATE`, username))
	if err != nil {
		return nil, fmt.Errorf("subscriber %q: %w", username, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO subscriber_bouquets (subscriber_id, bouquet_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, sub.ID, bouquetID); err != nil {
		utils.ErrorLog("Database error assigning bouquet: %v", err)
		return nil, err
	}

	if sub.PromoteGuest() {
		if _, err := tx.Exec(`UPDATE subscribers SET role = $1 WHERE id = $2`, sub.Role, sub.ID); err != nil {
			utils.ErrorLog("Database error promoting subscriber: %v", err)
			return nil, err
		}
		utils.InfoLog("Subscriber %s promoted from guest to member", username)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sub, nil
}

// RemoveBouquet unlinks a bouquet from a subscriber.
func (m *DBManager) RemoveBouquet(username string, bouquetID int64) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	_, err := m.db.Exec(`
		DELETE FROM subscriber_bouquets
		WHERE bouquet_id = $2
		  AND subscriber_id = (SELECT id FROM subscribers WHERE username = $1)
	`, username, bouquetID)
	if err != nil {
		utils.ErrorLog("Database error removing bouquet: %v", err)
	}
	return err
}

// SetSubscriberExpiry updates the account expiry timestamp. A nil expiry
// makes the account non-expiring.
func (m *DBManager) SetSubscriberExpiry(username string, expiresAt *time.Time) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	res, err := m.db.Exec(`UPDATE subscribers SET expires_at = $2 WHERE username = $1`, username, expiresAt)
	if err != nil {
		utils.ErrorLog("Database error updating expiry: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscriber %q not found", username)
	}
	return nil
}

// DeleteSubscriber removes an account. Accounts referenced by stream
// history are refused; expire or deactivate them instead.
func (m *DBManager) DeleteSubscriber(username string) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("database not initialized")
	}

	var historyCount int
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM stream_history WHERE username = $1`, username).Scan(&historyCount); err != nil {
		return err
	}
	if historyCount > 0 {
		return fmt.Errorf("subscriber %q has %d history records, deactivate instead of deleting", username, historyCount)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint: errcheck

	if _, err := tx.Exec(`
		DELETE FROM subscriber_bouquets
		WHERE subscriber_id = (SELECT id FROM subscribers WHERE username = $1)
	`, username); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM subscribers WHERE username = $1`, username); err != nil {
		return err
	}
	return tx.Commit()
}

// ExpiringSubscribers returns active accounts whose expiry falls inside
// the next window. Used by the notifier.
func (m *DBManager) ExpiringSubscribers(window time.Duration) ([]types.Subscriber, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := m.db.Query(`
		SELECT `+subscriberColumns+` FROM subscribers
		WHERE is_active = TRUE
		  AND expires_at IS NOT NULL
		  AND expires_at > CURRENT_TIMESTAMP
		  AND expires_at < $1
		ORDER BY expires_at
	`, time.Now().Add(window))
	if err != nil {
		utils.ErrorLog("Database error listing expiring subscribers: %v", err)
		return nil, err
	}
	defer rows.Close()

	var subs []types.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
