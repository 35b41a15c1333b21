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
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lucasduport/stream-panel/pkg/types"
)

// fakeStore records every upsert so tests can inspect what an import wrote.
type fakeStore struct {
	bouquets   []string
	categories map[string]int64
	nextCat    int64
	channels   []types.Channel
	movies     []types.Movie
	programs   []types.EPGProgram
}

func newFakeStore() *fakeStore {
	return &fakeStore{categories: map[string]int64{}, nextCat: 100}
}

func (f *fakeStore) CreateBouquet(name string, sortOrder int) (int64, error) {
	f.bouquets = append(f.bouquets, name)
	return int64(len(f.bouquets)), nil
}

func (f *fakeStore) UpsertCategory(name, kind string, sortOrder int) (int64, error) {
	key := kind + "/" + name
	if id, ok := f.categories[key]; ok {
		return id, nil
	}
	f.nextCat++
	f.categories[key] = f.nextCat
	return f.nextCat, nil
}

func (f *fakeStore) UpsertChannel(ch *types.Channel, bouquetID int64) (int64, error) {
	f.channels = append(f.channels, *ch)
	return int64(len(f.channels)), nil
}

func (f *fakeStore) UpsertMovie(mv *types.Movie, bouquetID int64) (int64, error) {
	f.movies = append(f.movies, *mv)
	return int64(len(f.movies)), nil
}

func (f *fakeStore) UpsertProgram(p *types.EPGProgram) error {
	f.programs = append(f.programs, *p)
	return nil
}

func (f *fakeStore) channelByName(name string) *types.Channel {
	for i := range f.channels {
		if f.channels[i].Name == name {
			return &f.channels[i]
		}
	}
	return nil
}

const testPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="bbc1.uk" tvg-logo="http://logo.example.com/1.png" group-title="UK",BBC One
http://upstream.example.com/1.ts
#EXTINF:-1 group-title="UK",BBC Two
http://upstream.example.com/2.ts
#EXTINF:-1,Unsorted
http://upstream.example.com/3.ts
`

func TestImportM3U(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.m3u")
	if err := os.WriteFile(path, []byte(testPlaylist), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	stats, err := New(store).ImportM3U(path, "Imported")
	if err != nil {
		t.Fatalf("ImportM3U failed: %v", err)
	}

	if stats.Channels != 3 || stats.Categories != 2 {
		t.Errorf("stats = %+v, want 3 channels, 2 categories", stats)
	}
	if len(store.bouquets) != 1 || store.bouquets[0] != "Imported" {
		t.Errorf("bouquets = %v", store.bouquets)
	}

	bbc := store.channelByName("BBC One")
	if bbc == nil {
		t.Fatal("BBC One not imported")
	}
	if bbc.EPGChannelID != "bbc1.uk" || bbc.LogoURL != "http://logo.example.com/1.png" {
		t.Errorf("channel tags = %+v", bbc)
	}
	if bbc.StreamURL != "http://upstream.example.com/1.ts" {
		t.Errorf("stream URL = %q", bbc.StreamURL)
	}

	// Tracks without a group land in the fallback category.
	unsorted := store.channelByName("Unsorted")
	if unsorted == nil {
		t.Fatal("Unsorted not imported")
	}
	if unsorted.CategoryID != store.categories["live/Uncategorized"] {
		t.Errorf("fallback category = %d, want %d", unsorted.CategoryID, store.categories["live/Uncategorized"])
	}
}

// Upstream panels disagree about numeric versus string typing, so the
// fixture mixes both on purpose.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/player_api.php" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("username") != "user" || r.URL.Query().Get("password") != "pass" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		switch r.URL.Query().Get("action") {
		case "get_live_categories":
			fmt.Fprint(w, `[{"category_id":"1","category_name":"UK","parent_id":0}]`)
		case "get_vod_categories":
			fmt.Fprint(w, `[{"category_id":2,"category_name":"Action"}]`)
		case "get_live_streams":
			fmt.Fprint(w, `[
				{"num":1,"name":"BBC One","stream_id":101,"epg_channel_id":"bbc1.uk","category_id":"1","stream_icon":"http://logo.example.com/1.png"},
				{"num":2,"name":"CNN","stream_id":"102","category_id":"999","epg_channel_id":null}
			]`)
		case "get_vod_streams":
			fmt.Fprint(w, `[{"num":1,"name":"Heat","stream_id":7,"category_id":2,"container_extension":"mkv","rating":"8.3"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestImportXtream(t *testing.T) {
	upstream := newUpstream(t)
	defer upstream.Close()

	store := newFakeStore()
	stats, err := New(store).ImportXtream(upstream.URL, "user", "pass", "Upstream")
	if err != nil {
		t.Fatalf("ImportXtream failed: %v", err)
	}

	if stats.Channels != 2 || stats.Movies != 1 || stats.Categories != 2 {
		t.Errorf("stats = %+v, want 2 channels, 1 movie, 2 categories", stats)
	}

	bbc := store.channelByName("BBC One")
	if bbc == nil {
		t.Fatal("BBC One not imported")
	}
	wantURL := upstream.URL + "/live/user/pass/101.ts"
	if bbc.StreamURL != wantURL {
		t.Errorf("stream URL = %q, want %q", bbc.StreamURL, wantURL)
	}
	if bbc.CategoryID != store.categories["live/UK"] {
		t.Errorf("category = %d, want %d", bbc.CategoryID, store.categories["live/UK"])
	}
	if bbc.EPGChannelID != "bbc1.uk" {
		t.Errorf("guide key = %q", bbc.EPGChannelID)
	}

	// Unknown upstream category falls back, string stream_id still parses.
	cnn := store.channelByName("CNN")
	if cnn == nil {
		t.Fatal("CNN not imported")
	}
	if cnn.CategoryID != store.categories["live/Uncategorized"] {
		t.Errorf("fallback category = %d", cnn.CategoryID)
	}
	if cnn.EPGChannelID != "" {
		t.Errorf("null guide key = %q, want empty", cnn.EPGChannelID)
	}

	if len(store.movies) != 1 {
		t.Fatalf("movies = %d, want 1", len(store.movies))
	}
	heat := store.movies[0]
	if heat.StreamURL != upstream.URL+"/movie/user/pass/7.mkv" {
		t.Errorf("movie URL = %q", heat.StreamURL)
	}
	if heat.ContainerExt != "mkv" || heat.Rating != "8.3" {
		t.Errorf("movie = %+v", heat)
	}
}

const testGuide = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <programme start="20250601180000 +0000" stop="20250601183000 +0000" channel="bbc1.uk">
    <title>News at Six</title>
    <desc>Evening bulletin</desc>
  </programme>
  <programme start="20250601183000" stop="20250601190000" channel="bbc1.uk">
    <title>Weather</title>
  </programme>
  <programme start="not-a-time" stop="20250601200000" channel="bbc1.uk">
    <title>Broken</title>
  </programme>
</tv>
`

func TestImportXMLTV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guide.xml")
	if err := os.WriteFile(path, []byte(testGuide), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	stats, err := New(store).ImportXMLTV(path)
	if err != nil {
		t.Fatalf("ImportXMLTV failed: %v", err)
	}

	// The entry with a broken timestamp is skipped, not fatal.
	if stats.Programs != 2 || len(store.programs) != 2 {
		t.Fatalf("programs = %d (stats %d), want 2", len(store.programs), stats.Programs)
	}

	news := store.programs[0]
	if news.EPGChannelID != "bbc1.uk" || news.Title != "News at Six" || news.Description != "Evening bulletin" {
		t.Errorf("programme = %+v", news)
	}
	want := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	if !news.Start.Equal(want) {
		t.Errorf("start = %v, want %v", news.Start, want)
	}

	// Zone-less timestamps parse too.
	if store.programs[1].Title != "Weather" {
		t.Errorf("second programme = %+v", store.programs[1])
	}
}

func TestImportXtreamUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer upstream.Close()

	if _, err := New(newFakeStore()).ImportXtream(upstream.URL, "user", "pass", "Upstream"); err == nil {
		t.Fatal("expected error when upstream categories are unavailable")
	}
}
