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

package types

import (
	"time"
)

// Subscriber roles. A self-registered account starts as a guest with no
// bouquets; assigning the first bouquet promotes it to member.
const (
	RoleGuest  = "guest"
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Subscriber is an IPTV account as stored in the subscribers table.
type Subscriber struct {
	ID             int64
	Username       string
	Password       string // bcrypt hash, or legacy plaintext
	Role           string
	IsActive       bool
	IsTrial        bool
	ExpiresAt      *time.Time // nil = never expires
	MaxConnections int
	OutputFormats  []string // allowed container formats, e.g. ["m3u8","ts"]
	CreatedAt      time.Time
}

// Expired reports whether the account expiry is in the past at the given time.
func (s *Subscriber) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// PromoteGuest is the single place where the guest-to-member transition
// happens. It must be invoked wherever a bouquet is assigned so the rule
// is never reimplemented per call site. Returns true when the role changed.
func (s *Subscriber) PromoteGuest() bool {
	if s.Role != RoleGuest {
		return false
	}
	s.Role = RoleMember
	return true
}

// FormatAllowed reports whether the subscriber may request the given
// container format. An empty list means no restriction.
func (s *Subscriber) FormatAllowed(format string) bool {
	if len(s.OutputFormats) == 0 {
		return true
	}
	for _, f := range s.OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Bouquet is a named grouping of channels/movies/series assignable to
// subscribers. Its content membership is independent of any subscriber;
// a subscriber sees the union of all bouquets assigned to them.
type Bouquet struct {
	ID        int64
	Name      string
	SortOrder int
}

// Category groups content within one kind ("live", "movie", "series").
type Category struct {
	ID        int64
	Name      string
	Kind      string
	SortOrder int
}

// Channel is a playable live stream.
type Channel struct {
	ID           int64
	Name         string
	StreamURL    string
	EPGChannelID string // external guide key, joined to EPG by string match
	CategoryID   int64
	LogoURL      string
	IsActive     bool
	IsHidden     bool
	IsOnline     bool // set by the external health check
	SortOrder    int
	AddedAt      time.Time
}

// Movie is a VOD entry with playback metadata.
type Movie struct {
	ID           int64
	Name         string
	StreamURL    string
	ContainerExt string
	CategoryID   int64
	Rating       string
	PosterURL    string
	IsActive     bool
	SortOrder    int
	AddedAt      time.Time
}

// Series owns episodes grouped by season/episode number.
type Series struct {
	ID         int64
	Name       string
	CategoryID int64
	Rating     string
	PosterURL  string
	IsActive   bool
	SortOrder  int
	AddedAt    time.Time
}

// Episode is one playable entry of a series.
type Episode struct {
	ID           int64
	SeriesID     int64
	Season       int
	Episode      int
	Title        string
	StreamURL    string
	ContainerExt string
	AddedAt      time.Time
}

// EPGProgram is a guide entry keyed by the external channel identifier.
// It is not a foreign key to Channel; the join is by matching string key.
type EPGProgram struct {
	ID           int64
	EPGChannelID string
	Title        string
	Description  string
	Start        time.Time
	Stop         time.Time
}

// StreamSession records one playback redirect in stream_history. Open
// sessions (EndTime nil) count against the subscriber connection limit.
type StreamSession struct {
	ID         int64
	SessionID  string
	Username   string
	StreamID   int64
	StreamType string // "live", "movie" or "series"
	StartTime  time.Time
	EndTime    *time.Time
	IPAddress  string
	UserAgent  string
}

// APIResponse is the standardized internal API response structure.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
