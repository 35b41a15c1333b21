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

package importer

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

type xmltvFile struct {
	XMLName    xml.Name         `xml:"tv"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvProgramme struct {
	Start   string `xml:"start,attr"`
	Stop    string `xml:"stop,attr"`
	Channel string `xml:"channel,attr"`
	Title   string `xml:"title"`
	Desc    string `xml:"desc"`
}

// XMLTV timestamps in the wild come with or without a zone offset.
var xmltvTimeLayouts = []string{
	"20060102150405 -0700",
	"20060102150405",
}

func parseXMLTVTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range xmltvTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable XMLTV timestamp %q", raw)
}

// ImportXMLTV loads guide entries from an XMLTV file or URL into
// epg_programs. Entries whose timestamps cannot be parsed are skipped;
// channel keys are stored as-is and join the catalog by string match.
func (i *Importer) ImportXMLTV(source string) (*Stats, error) {
	reader, err := i.openSource(source)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	defer reader.Close()

	var doc xmltvFile
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("parsing XMLTV from %s: %w", source, err))
	}
	utils.InfoLog("Parsed XMLTV from %s: %d programmes", source, len(doc.Programmes))

	stats := &Stats{}
	for _, p := range doc.Programmes {
		if p.Channel == "" || p.Title == "" {
			continue
		}
		start, err := parseXMLTVTime(p.Start)
		if err != nil {
			utils.WarnLog("Skipping programme %q: %v", p.Title, err)
			continue
		}
		stop, err := parseXMLTVTime(p.Stop)
		if err != nil {
			utils.WarnLog("Skipping programme %q: %v", p.Title, err)
			continue
		}

		program := &types.EPGProgram{
			EPGChannelID: p.Channel,
			Title:        p.Title,
			Description:  p.Desc,
			Start:        start,
			Stop:         stop,
		}
		if err := i.store.UpsertProgram(program); err != nil {
			utils.WarnLog("Skipping programme %q: %v", p.Title, err)
			continue
		}
		stats.Programs++
	}

	utils.InfoLog("XMLTV import finished: %d programmes", stats.Programs)
	return stats, nil
}

// openSource opens a URL over HTTP or a local file path.
func (i *Importer) openSource(source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := i.client.Get(source)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetching %s returned HTTP %d", source, resp.StatusCode)
		}
		return resp.Body, nil
	}
	return os.Open(source)
}
