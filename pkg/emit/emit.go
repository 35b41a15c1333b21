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

// Package emit serializes a resolved content snapshot into the wire
// formats IPTV clients consume: M3U playlists, XMLTV guides, Enigma2
// bouquet files and the Xtream panel JSON dialect. Emitters are pure
// functions of their inputs and never fail on missing metadata; absent
// fields become empty strings in the output.
package emit

import (
	"fmt"

	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
)

// StreamURLBuilder produces the panel-relative playback URLs embedded in
// playlists. Source URLs are never emitted; clients always come back
// through the panel's redirect endpoints.
type StreamURLBuilder struct {
	BaseURL  string
	Username string
	Password string
}

// Live returns the live redirect URL, with a container extension when the
// client asked for one.
func (b StreamURLBuilder) Live(streamID int64, ext string) string {
	if ext == "" {
		return fmt.Sprintf("%s/%s/%s/%d", b.BaseURL, b.Username, b.Password, streamID)
	}
	return fmt.Sprintf("%s/live/%s/%s/%d.%s", b.BaseURL, b.Username, b.Password, streamID, ext)
}

// Movie returns the VOD redirect URL.
func (b StreamURLBuilder) Movie(streamID int64, ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("%s/movie/%s/%s/%d.%s", b.BaseURL, b.Username, b.Password, streamID, ext)
}

// Episode returns the series episode redirect URL.
func (b StreamURLBuilder) Episode(episodeID int64, ext string) string {
	if ext == "" {
		ext = "mp4"
	}
	return fmt.Sprintf("%s/series/%s/%s/%d.%s", b.BaseURL, b.Username, b.Password, episodeID, ext)
}

// categoryNames maps category ID to name for group-title lookups.
func categoryNames(content *resolver.ResolvedContent) map[int64]string {
	names := make(map[int64]string, len(content.Categories))
	for _, c := range content.Categories {
		names[c.ID] = c.Name
	}
	return names
}

// categoriesOfKind filters the snapshot's categories to one kind.
func categoriesOfKind(content *resolver.ResolvedContent, kind string) []types.Category {
	var out []types.Category
	for _, c := range content.Categories {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
