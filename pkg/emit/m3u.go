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

package emit

import (
	"bytes"
	"fmt"

	"github.com/lucasduport/stream-panel/pkg/resolver"
)

// M3UOptions controls playlist generation for one request.
type M3UOptions struct {
	// Output is the container extension the client asked for via
	// get.php output=. Empty keeps the bare redirect URL form.
	Output string

	// EPGURL, when set, is embedded as the url-tvg directive so players
	// auto-discover the matching XMLTV endpoint.
	EPGURL string
}

// M3U renders the playlist: the #EXTM3U header, then one #EXTINF plus URL
// line pair per channel. M3U has no escaping convention, so names and
// attribute values are written literally even when they contain quotes
// or commas.
func M3U(b StreamURLBuilder, content *resolver.ResolvedContent, opts M3UOptions) []byte {
	var buf bytes.Buffer

	if opts.EPGURL != "" {
		fmt.Fprintf(&buf, "#EXTM3U url-tvg=\"%s\"\n", opts.EPGURL)
	} else {
		buf.WriteString("#EXTM3U\n")
	}

	groups := categoryNames(content)
	for _, ch := range content.Channels {
		fmt.Fprintf(&buf, "#EXTINF:-1 tvg-id=\"%s\" tvg-name=\"%s\" tvg-logo=\"%s\" group-title=\"%s\",%s\n",
			ch.EPGChannelID, ch.Name, ch.LogoURL, groups[ch.CategoryID], ch.Name)
		buf.WriteString(b.Live(ch.ID, opts.Output))
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}
