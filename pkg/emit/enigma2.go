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
	"net/url"

	"github.com/lucasduport/stream-panel/pkg/resolver"
)

// enigma2ServicePrefix is the fixed IPTV service type Enigma2 receivers
// expect ahead of the URL-encoded stream address.
const enigma2ServicePrefix = "4097:0:1:0:0:0:0:0:0:0:"

// Enigma2 renders a userbouquet file: a #NAME header, then a #SERVICE and
// #DESCRIPTION line pair per channel. Stream URLs are percent encoded
// because colons are field separators in service references.
func Enigma2(b StreamURLBuilder, bouquetName string, content *resolver.ResolvedContent) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "#NAME %s\n", bouquetName)
	for _, ch := range content.Channels {
		streamURL := b.Live(ch.ID, "ts")
		fmt.Fprintf(&buf, "#SERVICE %s%s:%s\n", enigma2ServicePrefix, url.QueryEscape(streamURL), ch.Name)
		fmt.Fprintf(&buf, "#DESCRIPTION %s\n", ch.Name)
	}

	return buf.Bytes()
}
