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
	"encoding/base64"
	"strconv"
	"time"

	"github.com/lucasduport/stream-panel/pkg/config"
	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
)

// Xtream clients parse these structures rigidly: numeric values such as
// max_connections travel as strings, and the field names must not change.

// UserInfo is the subscriber profile block of player_api and panel_api.
type UserInfo struct {
	Username             string   `json:"username"`
	Password             string   `json:"password"`
	Message              string   `json:"message"`
	Auth                 int      `json:"auth"`
	Status               string   `json:"status"`
	ExpDate              string   `json:"exp_date"`
	IsTrial              string   `json:"is_trial"`
	ActiveConns          string   `json:"active_cons"`
	CreatedAt            string   `json:"created_at"`
	MaxConnections       string   `json:"max_connections"`
	AllowedOutputFormats []string `json:"allowed_output_formats"`
}

// ServerInfo is the service metadata block.
type ServerInfo struct {
	URL          string `json:"url"`
	Port         string `json:"port"`
	HTTPSPort    string `json:"https_port"`
	Protocol     string `json:"protocol"`
	RTMPPort     string `json:"rtmp_port"`
	Timezone     string `json:"timezone"`
	TimestampNow int64  `json:"timestamp_now"`
	TimeNow      string `json:"time_now"`
}

// LoginResponse is the player_api default action payload.
type LoginResponse struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// PanelDocument is the panel_api.php response.
type PanelDocument struct {
	UserInfo          UserInfo                    `json:"user_info"`
	ServerInfo        ServerInfo                  `json:"server_info"`
	Categories        map[string][]Category       `json:"categories"`
	AvailableChannels []int64                     `json:"available_channels"`
}

// Category is one category entry in Xtream format.
type Category struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	ParentID     int    `json:"parent_id"`
}

// LiveStream is one live channel entry of get_live_streams.
type LiveStream struct {
	Num               int    `json:"num"`
	Name              string `json:"name"`
	StreamType        string `json:"stream_type"`
	StreamID          int64  `json:"stream_id"`
	StreamIcon        string `json:"stream_icon"`
	EPGChannelID      string `json:"epg_channel_id"`
	Added             string `json:"added"`
	IsAdult           string `json:"is_adult"`
	CategoryID        string `json:"category_id"`
	CustomSID         string `json:"custom_sid"`
	TVArchive         int    `json:"tv_archive"`
	DirectSource      string `json:"direct_source"`
	TVArchiveDuration int    `json:"tv_archive_duration"`
}

// VODStream is one movie entry of get_vod_streams.
type VODStream struct {
	Num                int    `json:"num"`
	Name               string `json:"name"`
	StreamType         string `json:"stream_type"`
	StreamID           int64  `json:"stream_id"`
	StreamIcon         string `json:"stream_icon"`
	Rating             string `json:"rating"`
	Added              string `json:"added"`
	CategoryID         string `json:"category_id"`
	ContainerExtension string `json:"container_extension"`
	DirectSource       string `json:"direct_source"`
}

// VODInfo is the get_vod_info payload: metadata plus the stream block
// clients use to build the playback URL.
type VODInfo struct {
	Info      VODInfoDetail `json:"info"`
	MovieData VODMovieData  `json:"movie_data"`
}

// VODInfoDetail is the metadata block of get_vod_info.
type VODInfoDetail struct {
	Name        string `json:"name"`
	MovieImage  string `json:"movie_image"`
	Rating      string `json:"rating"`
	Description string `json:"description"`
}

// VODMovieData is the stream block of get_vod_info.
type VODMovieData struct {
	StreamID           int64  `json:"stream_id"`
	Name               string `json:"name"`
	Added              string `json:"added"`
	CategoryID         string `json:"category_id"`
	ContainerExtension string `json:"container_extension"`
	CustomSID          string `json:"custom_sid"`
	DirectSource       string `json:"direct_source"`
}

// SeriesEntry is one series of get_series.
type SeriesEntry struct {
	Num        int    `json:"num"`
	Name       string `json:"name"`
	SeriesID   int64  `json:"series_id"`
	Cover      string `json:"cover"`
	Rating     string `json:"rating"`
	CategoryID string `json:"category_id"`
}

// SeriesEpisode is one episode in the get_series_info episode map.
type SeriesEpisode struct {
	ID                 string `json:"id"`
	EpisodeNum         int    `json:"episode_num"`
	Title              string `json:"title"`
	ContainerExtension string `json:"container_extension"`
	Season             int    `json:"season"`
	Added              string `json:"added"`
}

// SeriesInfo is the get_series_info payload: episodes grouped by season.
type SeriesInfo struct {
	Info     SeriesEntry                `json:"info"`
	Episodes map[string][]SeriesEpisode `json:"episodes"`
}

// EPGListing is one guide entry of get_short_epg and
// get_simple_data_table. Titles and descriptions are base64 encoded, the
// way Xtream panels ship them.
type EPGListing struct {
	ID             string `json:"id"`
	EPGID          string `json:"epg_id"`
	Title          string `json:"title"`
	Lang           string `json:"lang"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Description    string `json:"description"`
	ChannelID      string `json:"channel_id"`
	StartTimestamp string `json:"start_timestamp"`
	StopTimestamp  string `json:"stop_timestamp"`
	NowPlaying     int    `json:"now_playing"`
	HasArchive     int    `json:"has_archive"`
}

// EPGListings wraps guide entries the way clients expect.
type EPGListings struct {
	EPGListings []EPGListing `json:"epg_listings"`
}

// AuthFailure is the fixed 401 body. Clients match on status "Disabled"
// regardless of which credential check failed.
func AuthFailure() map[string]interface{} {
	return map[string]interface{}{
		"user_info": map[string]interface{}{
			"auth":    0,
			"status":  "Disabled",
			"message": "Invalid credentials",
		},
	}
}

// NewUserInfo builds the profile block for an authenticated subscriber.
func NewUserInfo(sub *types.Subscriber, password string, activeConns int, now time.Time) UserInfo {
	expDate := "null"
	if sub.ExpiresAt != nil {
		expDate = strconv.FormatInt(sub.ExpiresAt.Unix(), 10)
	}
	isTrial := "0"
	if sub.IsTrial {
		isTrial = "1"
	}
	formats := sub.OutputFormats
	if len(formats) == 0 {
		formats = []string{"m3u8", "ts"}
	}
	return UserInfo{
		Username:             sub.Username,
		Password:             password,
		Message:              "",
		Auth:                 1,
		Status:               "Active",
		ExpDate:              expDate,
		IsTrial:              isTrial,
		ActiveConns:          strconv.Itoa(activeConns),
		CreatedAt:            strconv.FormatInt(sub.CreatedAt.Unix(), 10),
		MaxConnections:       strconv.Itoa(sub.MaxConnections),
		AllowedOutputFormats: formats,
	}
}

// NewServerInfo builds the service metadata block from the panel
// configuration.
func NewServerInfo(cfg *config.PanelConfig, now time.Time) ServerInfo {
	protocol := "http"
	httpsPort := ""
	port := strconv.Itoa(cfg.AdvertisedPort)
	if cfg.HTTPS {
		protocol = "https"
		httpsPort = port
	}
	return ServerInfo{
		URL:          cfg.HostConfig.Hostname,
		Port:         port,
		HTTPSPort:    httpsPort,
		Protocol:     protocol,
		RTMPPort:     "0",
		Timezone:     cfg.ServerTimezone,
		TimestampNow: now.Unix(),
		TimeNow:      now.Format("2006-01-02 15:04:05"),
	}
}

// Panel builds the panel_api.php document: profile, server metadata,
// categories grouped by kind and the flat visible channel ID list.
func Panel(user UserInfo, server ServerInfo, content *resolver.ResolvedContent) PanelDocument {
	doc := PanelDocument{
		UserInfo:          user,
		ServerInfo:        server,
		Categories:        map[string][]Category{},
		AvailableChannels: []int64{},
	}
	for _, kind := range []string{"live", "movie", "series"} {
		doc.Categories[kind] = Categories(categoriesOfKind(content, kind))
	}
	for _, ch := range content.Channels {
		doc.AvailableChannels = append(doc.AvailableChannels, ch.ID)
	}
	return doc
}

// Categories converts snapshot categories to the Xtream wire shape.
// Never nil: clients choke on a JSON null where an array belongs.
func Categories(cats []types.Category) []Category {
	out := make([]Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, Category{
			CategoryID:   strconv.FormatInt(c.ID, 10),
			CategoryName: c.Name,
			ParentID:     0,
		})
	}
	return out
}

// LiveStreams converts the snapshot's channels to get_live_streams
// entries, optionally filtered to one category. Direct sources stay
// empty; playback goes through the panel redirect.
func LiveStreams(content *resolver.ResolvedContent, categoryID string) []LiveStream {
	out := make([]LiveStream, 0, len(content.Channels))
	num := 1
	for _, ch := range content.Channels {
		catID := strconv.FormatInt(ch.CategoryID, 10)
		if categoryID != "" && catID != categoryID {
			continue
		}
		out = append(out, LiveStream{
			Num:          num,
			Name:         ch.Name,
			StreamType:   "live",
			StreamID:     ch.ID,
			StreamIcon:   ch.LogoURL,
			EPGChannelID: ch.EPGChannelID,
			Added:        strconv.FormatInt(ch.AddedAt.Unix(), 10),
			IsAdult:      "0",
			CategoryID:   catID,
			DirectSource: "",
		})
		num++
	}
	return out
}

// VODStreams converts the snapshot's movies to get_vod_streams entries.
func VODStreams(content *resolver.ResolvedContent, categoryID string) []VODStream {
	out := make([]VODStream, 0, len(content.Movies))
	num := 1
	for _, mv := range content.Movies {
		catID := strconv.FormatInt(mv.CategoryID, 10)
		if categoryID != "" && catID != categoryID {
			continue
		}
		ext := mv.ContainerExt
		if ext == "" {
			ext = "mp4"
		}
		out = append(out, VODStream{
			Num:                num,
			Name:               mv.Name,
			StreamType:         "movie",
			StreamID:           mv.ID,
			StreamIcon:         mv.PosterURL,
			Rating:             mv.Rating,
			Added:              strconv.FormatInt(mv.AddedAt.Unix(), 10),
			CategoryID:         catID,
			ContainerExtension: ext,
			DirectSource:       "",
		})
		num++
	}
	return out
}

// SeriesList converts the snapshot's series to get_series entries.
func SeriesList(content *resolver.ResolvedContent, categoryID string) []SeriesEntry {
	out := make([]SeriesEntry, 0, len(content.Series))
	num := 1
	for _, sr := range content.Series {
		catID := strconv.FormatInt(sr.CategoryID, 10)
		if categoryID != "" && catID != categoryID {
			continue
		}
		out = append(out, SeriesEntry{
			Num:        num,
			Name:       sr.Name,
			SeriesID:   sr.ID,
			Cover:      sr.PosterURL,
			Rating:     sr.Rating,
			CategoryID: catID,
		})
		num++
	}
	return out
}

// VODDetail builds the get_vod_info payload for one movie.
func VODDetail(mv *types.Movie) VODInfo {
	ext := mv.ContainerExt
	if ext == "" {
		ext = "mp4"
	}
	return VODInfo{
		Info: VODInfoDetail{
			Name:        mv.Name,
			MovieImage:  mv.PosterURL,
			Rating:      mv.Rating,
			Description: "",
		},
		MovieData: VODMovieData{
			StreamID:           mv.ID,
			Name:               mv.Name,
			Added:              strconv.FormatInt(mv.AddedAt.Unix(), 10),
			CategoryID:         strconv.FormatInt(mv.CategoryID, 10),
			ContainerExtension: ext,
			DirectSource:       "",
		},
	}
}

// SeriesDetail builds the get_series_info payload for one series.
func SeriesDetail(sr *types.Series, episodes []types.Episode) SeriesInfo {
	info := SeriesInfo{
		Info: SeriesEntry{
			Num:        1,
			Name:       sr.Name,
			SeriesID:   sr.ID,
			Cover:      sr.PosterURL,
			Rating:     sr.Rating,
			CategoryID: strconv.FormatInt(sr.CategoryID, 10),
		},
		Episodes: map[string][]SeriesEpisode{},
	}
	for _, ep := range episodes {
		ext := ep.ContainerExt
		if ext == "" {
			ext = "mp4"
		}
		season := strconv.Itoa(ep.Season)
		info.Episodes[season] = append(info.Episodes[season], SeriesEpisode{
			ID:                 strconv.FormatInt(ep.ID, 10),
			EpisodeNum:         ep.Episode,
			Title:              ep.Title,
			ContainerExtension: ext,
			Season:             ep.Season,
			Added:              strconv.FormatInt(ep.AddedAt.Unix(), 10),
		})
	}
	return info
}

// ShortEPG converts guide rows to epg_listings entries. Title and
// description travel base64 encoded, which is how panels ship them and
// how clients decode them.
func ShortEPG(programs []types.EPGProgram, now time.Time) EPGListings {
	out := EPGListings{EPGListings: make([]EPGListing, 0, len(programs))}
	for _, p := range programs {
		nowPlaying := 0
		if p.Start.Before(now) && p.Stop.After(now) {
			nowPlaying = 1
		}
		out.EPGListings = append(out.EPGListings, EPGListing{
			ID:             strconv.FormatInt(p.ID, 10),
			EPGID:          p.EPGChannelID,
			Title:          base64.StdEncoding.EncodeToString([]byte(p.Title)),
			Lang:           "",
			Start:          p.Start.Format("2006-01-02 15:04:05"),
			End:            p.Stop.Format("2006-01-02 15:04:05"),
			Description:    base64.StdEncoding.EncodeToString([]byte(p.Description)),
			ChannelID:      p.EPGChannelID,
			StartTimestamp: strconv.FormatInt(p.Start.Unix(), 10),
			StopTimestamp:  strconv.FormatInt(p.Stop.Unix(), 10),
			NowPlaying:     nowPlaying,
			HasArchive:     0,
		})
	}
	return out
}
