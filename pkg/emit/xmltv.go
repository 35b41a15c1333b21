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
	"encoding/xml"
	"time"

	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// xmltvTimeLayout is the XMLTV timestamp convention, YmdHis plus offset.
const xmltvTimeLayout = "20060102150405 -0700"

// DefaultEPGWindow bounds programme export when no window is configured.
const DefaultEPGWindow = 7 * 24 * time.Hour

type xmltvDoc struct {
	XMLName    xml.Name         `xml:"tv"`
	Generator  string           `xml:"generator-info-name,attr"`
	Channels   []xmltvChannel   `xml:"channel"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvChannel struct {
	ID          string     `xml:"id,attr"`
	DisplayName string     `xml:"display-name"`
	Icon        *xmltvIcon `xml:"icon"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

type xmltvProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc,omitempty"`
}

// XMLTV renders the guide for a resolved snapshot. One channel element is
// emitted per channel that carries a guide key; programmes are restricted
// to keys present in the snapshot and to the time window starting at now.
// Text content is entity escaped by the XML encoder.
func XMLTV(content *resolver.ResolvedContent, programs []types.EPGProgram, now time.Time, window time.Duration) ([]byte, error) {
	if window <= 0 {
		window = DefaultEPGWindow
	}
	until := now.Add(window)

	doc := xmltvDoc{Generator: "stream-panel"}

	visible := make(map[string]bool)
	for _, ch := range content.Channels {
		if ch.EPGChannelID == "" || visible[ch.EPGChannelID] {
			continue
		}
		visible[ch.EPGChannelID] = true
		channel := xmltvChannel{ID: ch.EPGChannelID, DisplayName: ch.Name}
		if ch.LogoURL != "" {
			channel.Icon = &xmltvIcon{Src: ch.LogoURL}
		}
		doc.Channels = append(doc.Channels, channel)
	}

	for _, p := range programs {
		if !visible[p.EPGChannelID] {
			continue
		}
		// Keep programmes overlapping the window, including one already
		// in progress.
		if !p.Stop.After(now) || !p.Start.Before(until) {
			continue
		}
		doc.Programmes = append(doc.Programmes, xmltvProgramme{
			Start:   p.Start.Format(xmltvTimeLayout),
			Stop:    p.Stop.Format(xmltvTimeLayout),
			Channel: p.EPGChannelID,
			Title:   p.Title,
			Desc:    p.Description,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	return append([]byte(xml.Header), body...), nil
}
