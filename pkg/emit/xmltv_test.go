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
	"strings"
	"testing"
	"time"

	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
)

func TestXMLTVScenario(t *testing.T) {
	now := time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC)
	content := &resolver.ResolvedContent{
		Username: "alice",
		Channels: []types.Channel{
			{ID: 1, Name: "BBC One", EPGChannelID: "bbc1.uk"},
		},
	}
	programs := []types.EPGProgram{
		{
			EPGChannelID: "bbc1.uk",
			Title:        "News at Six",
			Start:        time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC),
			Stop:         time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC),
		},
	}

	data, err := XMLTV(content, programs, now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("XMLTV() failed: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, `<channel id="bbc1.uk">`) {
		t.Errorf("output lacks channel element:\n%s", out)
	}
	if !strings.Contains(out, `channel="bbc1.uk"`) {
		t.Errorf("output lacks programme channel attribute:\n%s", out)
	}
	if !strings.Contains(out, "<title>News at Six</title>") {
		t.Errorf("output lacks programme title:\n%s", out)
	}
	if !strings.Contains(out, `start="20250601180000 +0000"`) {
		t.Errorf("output has wrong timestamp format:\n%s", out)
	}
}

func TestXMLTVChannelPerGuideKey(t *testing.T) {
	content := &resolver.ResolvedContent{
		Channels: []types.Channel{
			{ID: 1, Name: "BBC One", EPGChannelID: "bbc1.uk"},
			{ID: 2, Name: "No Guide Channel"},
			{ID: 3, Name: "BBC One HD", EPGChannelID: "bbc1.uk"},
		},
	}

	data, err := XMLTV(content, nil, time.Now(), 0)
	if err != nil {
		t.Fatalf("XMLTV() failed: %v", err)
	}
	out := string(data)

	// One channel element per distinct non-empty guide key.
	if got := strings.Count(out, "<channel "); got != 1 {
		t.Errorf("output has %d channel elements, want 1:\n%s", got, out)
	}
	if strings.Contains(out, "No Guide Channel") {
		t.Errorf("channel without guide key was exported:\n%s", out)
	}
}

func TestXMLTVWindowAndVisibility(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	content := &resolver.ResolvedContent{
		Channels: []types.Channel{{ID: 1, Name: "BBC One", EPGChannelID: "bbc1.uk"}},
	}
	programs := []types.EPGProgram{
		{EPGChannelID: "bbc1.uk", Title: "Ended Yesterday",
			Start: now.Add(-25 * time.Hour), Stop: now.Add(-24 * time.Hour)},
		{EPGChannelID: "bbc1.uk", Title: "Running Now",
			Start: now.Add(-time.Hour), Stop: now.Add(time.Hour)},
		{EPGChannelID: "bbc1.uk", Title: "Beyond The Window",
			Start: now.Add(8 * 24 * time.Hour), Stop: now.Add(8*24*time.Hour + time.Hour)},
		{EPGChannelID: "other.key", Title: "Invisible Channel Programme",
			Start: now, Stop: now.Add(time.Hour)},
	}

	data, err := XMLTV(content, programs, now, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("XMLTV() failed: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "Running Now") {
		t.Errorf("in-progress programme missing:\n%s", out)
	}
	for _, absent := range []string{"Ended Yesterday", "Beyond The Window", "Invisible Channel Programme"} {
		if strings.Contains(out, absent) {
			t.Errorf("programme %q should be filtered out:\n%s", absent, out)
		}
	}
}

func TestXMLTVEscaping(t *testing.T) {
	content := &resolver.ResolvedContent{
		Channels: []types.Channel{{ID: 1, Name: "Tom & Jerry", EPGChannelID: "cartoons.uk"}},
	}
	now := time.Now()
	programs := []types.EPGProgram{
		{EPGChannelID: "cartoons.uk", Title: "Cat <vs> Mouse & Friends",
			Start: now.Add(time.Hour), Stop: now.Add(2 * time.Hour)},
	}

	data, err := XMLTV(content, programs, now, 0)
	if err != nil {
		t.Fatalf("XMLTV() failed: %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "Tom &amp; Jerry") {
		t.Errorf("display-name not entity escaped:\n%s", out)
	}
	if !strings.Contains(out, "Cat &lt;vs&gt; Mouse &amp; Friends") {
		t.Errorf("title not entity escaped:\n%s", out)
	}
}
