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
	"strings"
	"testing"
)

func TestSchemaStatements(t *testing.T) {
	wantTables := []string{
		"subscribers",
		"bouquets",
		"subscriber_bouquets",
		"categories",
		"channels",
		"channel_bouquets",
		"movies",
		"movie_bouquets",
		"series",
		"series_bouquets",
		"episodes",
		"epg_programs",
		"stream_history",
	}

	if len(schemaStatements) != len(wantTables) {
		t.Fatalf("schema has %d statements, want %d", len(schemaStatements), len(wantTables))
	}
	for i, want := range wantTables {
		s := schemaStatements[i]
		if s.name != want {
			t.Errorf("statement %d = %q, want %q", i, s.name, want)
		}
		if !strings.Contains(s.stmt, "CREATE TABLE IF NOT EXISTS "+want) {
			t.Errorf("statement %q does not create its table", s.name)
		}
	}
}

func TestSchemaEPGHasNoChannelForeignKey(t *testing.T) {
	for _, s := range schemaStatements {
		if s.name != "epg_programs" {
			continue
		}
		// Guide entries join channels by epg_channel_id string match.
		if strings.Contains(s.stmt, "REFERENCES channels") {
			t.Error("epg_programs must not reference channels")
		}
		if !strings.Contains(s.stmt, "epg_channel_id TEXT NOT NULL") {
			t.Error("epg_programs must carry the string guide key")
		}
		return
	}
	t.Fatal("epg_programs statement missing")
}
