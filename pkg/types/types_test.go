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
	"testing"
	"time"
)

func TestSubscriberExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "nil expiry never expires", expiresAt: nil, want: false},
		{name: "future expiry is valid", expiresAt: &future, want: false},
		{name: "past expiry is expired", expiresAt: &past, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscriber{Username: "alice", ExpiresAt: tt.expiresAt}
			if got := sub.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPromoteGuest(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		wantChanged bool
		wantRole    string
	}{
		{name: "guest becomes member", role: RoleGuest, wantChanged: true, wantRole: RoleMember},
		{name: "member unchanged", role: RoleMember, wantChanged: false, wantRole: RoleMember},
		{name: "admin unchanged", role: RoleAdmin, wantChanged: false, wantRole: RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscriber{Role: tt.role}
			if got := sub.PromoteGuest(); got != tt.wantChanged {
				t.Errorf("PromoteGuest() = %v, want %v", got, tt.wantChanged)
			}
			if sub.Role != tt.wantRole {
				t.Errorf("role after PromoteGuest() = %q, want %q", sub.Role, tt.wantRole)
			}
		})
	}
}

func TestFormatAllowed(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		format  string
		want    bool
	}{
		{name: "listed format allowed", formats: []string{"m3u8", "ts"}, format: "ts", want: true},
		{name: "unlisted format denied", formats: []string{"m3u8"}, format: "ts", want: false},
		{name: "empty list allows everything", formats: nil, format: "mp4", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscriber{OutputFormats: tt.formats}
			if got := sub.FormatAllowed(tt.format); got != tt.want {
				t.Errorf("FormatAllowed(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
