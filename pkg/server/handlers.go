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

package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/stream-panel/pkg/emit"
	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// player_api.php actions understood by the dispatcher. Anything else,
// including no action at all, answers the login payload.
const (
	actionLiveCategories   = "get_live_categories"
	actionVODCategories    = "get_vod_categories"
	actionSeriesCategories = "get_series_categories"
	actionLiveStreams      = "get_live_streams"
	actionVODStreams       = "get_vod_streams"
	actionVODInfo          = "get_vod_info"
	actionSeries           = "get_series"
	actionSeriesInfo       = "get_series_info"
	actionShortEPG         = "get_short_epg"
	actionSimpleDataTable  = "get_simple_data_table"
)

// playerAPI is the main Xtream dispatch endpoint. It authenticates
// inline rather than via middleware because it reads credentials from
// either the query string or a form body.
func (c *Config) playerAPI(ctx *gin.Context) {
	username, password := credentials(ctx)
	sub, err := c.authenticator.Authenticate(username, password)
	if err != nil {
		utils.DebugLog("player_api auth failed for user: %s", username)
		abortInvalidCredentials(ctx)
		return
	}

	action := ctx.Query("action")
	if action == "" {
		action = ctx.PostForm("action")
	}
	categoryID := ctx.Query("category_id")
	utils.DebugLog("player_api: user=%s action=%q", sub.Username, action)

	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	switch action {
	case actionLiveCategories:
		ctx.JSON(http.StatusOK, emit.Categories(categoriesOf(content.Categories, "live")))
	case actionVODCategories:
		ctx.JSON(http.StatusOK, emit.Categories(categoriesOf(content.Categories, "movie")))
	case actionSeriesCategories:
		ctx.JSON(http.StatusOK, emit.Categories(categoriesOf(content.Categories, "series")))
	case actionLiveStreams:
		ctx.JSON(http.StatusOK, emit.LiveStreams(content, categoryID))
	case actionVODStreams:
		ctx.JSON(http.StatusOK, emit.VODStreams(content, categoryID))
	case actionVODInfo:
		c.vodInfo(ctx, content)
	case actionSeries:
		ctx.JSON(http.StatusOK, emit.SeriesList(content, categoryID))
	case actionSeriesInfo:
		c.seriesInfo(ctx, content)
	case actionShortEPG:
		c.shortEPG(ctx, content, 0)
	case actionSimpleDataTable:
		c.shortEPG(ctx, content, -1)
	default:
		active, err := c.db.ActiveSessionCount(sub.Username)
		if err != nil {
			utils.WarnLog("Active session count failed for %s: %v", sub.Username, err)
		}
		now := time.Now()
		ctx.JSON(http.StatusOK, emit.LoginResponse{
			UserInfo:   emit.NewUserInfo(sub, password, active, now),
			ServerInfo: emit.NewServerInfo(c.PanelConfig, now),
		})
	}
}

// vodInfo answers get_vod_info for one movie in the subscriber's visible
// set.
func (c *Config) vodInfo(ctx *gin.Context, content *resolver.ResolvedContent) {
	vodID, err := strconv.ParseInt(ctx.Query("vod_id"), 10, 64)
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	mv, ok := content.MovieByID(vodID)
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	ctx.JSON(http.StatusOK, emit.VODDetail(mv))
}

// seriesInfo answers get_series_info for one series in the subscriber's
// visible set.
func (c *Config) seriesInfo(ctx *gin.Context, content *resolver.ResolvedContent) {
	seriesID, err := strconv.ParseInt(ctx.Query("series_id"), 10, 64)
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	sr, ok := content.SeriesByID(seriesID)
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	episodes, err := c.db.EpisodesForSeries(sr.ID)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, emit.SeriesDetail(sr, episodes))
}

// shortEPG answers get_short_epg (next few entries, default 4) and
// get_simple_data_table (the full listing for one channel).
func (c *Config) shortEPG(ctx *gin.Context, content *resolver.ResolvedContent, limit int) {
	streamID, err := strconv.ParseInt(ctx.Query("stream_id"), 10, 64)
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	ch, ok := content.ChannelByID(streamID)
	if !ok || ch.EPGChannelID == "" {
		ctx.JSON(http.StatusOK, emit.EPGListings{EPGListings: []emit.EPGListing{}})
		return
	}

	now := time.Now()
	var programs []types.EPGProgram
	if limit < 0 {
		// simple_data_table: the whole listing for the channel.
		programs, err = c.db.AllProgramsForKey(ch.EPGChannelID)
	} else {
		if limit == 0 {
			limit = 4
			if v, convErr := strconv.Atoi(ctx.Query("limit")); convErr == nil && v > 0 {
				limit = v
			}
		}
		programs, err = c.db.ShortEPG(ch.EPGChannelID, now, limit)
	}
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.JSON(http.StatusOK, emit.ShortEPG(programs, now))
}

// getM3U serves get.php, the playlist download endpoint.
func (c *Config) getM3U(ctx *gin.Context) {
	sub := subscriber(ctx)
	output := ctx.DefaultQuery("output", "m3u8")
	if !sub.FormatAllowed(output) {
		ctx.AbortWithStatus(http.StatusForbidden)
		return
	}

	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	builder := emit.StreamURLBuilder{
		BaseURL:  c.BaseURL(),
		Username: sub.Username,
		Password: ctx.GetString("password"),
	}
	data := emit.M3U(builder, content, emit.M3UOptions{
		Output: output,
		EPGURL: fmt.Sprintf("%s/xmltv.php?username=%s&password=%s", c.BaseURL(), sub.Username, ctx.GetString("password")),
	})

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, c.M3UFileName))
	ctx.Data(http.StatusOK, "audio/x-mpegurl", data)
}

// getXMLTV serves xmltv.php, the guide restricted to the subscriber's
// visible channels.
func (c *Config) getXMLTV(ctx *gin.Context) {
	sub := subscriber(ctx)
	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	now := time.Now()
	window := c.EPGWindow
	if window <= 0 {
		window = emit.DefaultEPGWindow
	}
	programs, err := c.db.ProgramsForKeys(content.EPGChannelIDs(), now, now.Add(window))
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	data, err := emit.XMLTV(content, programs, now, window)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.Data(http.StatusOK, "application/xml", data)
}

// getPanel serves panel_api.php.
func (c *Config) getPanel(ctx *gin.Context) {
	sub := subscriber(ctx)
	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	active, err := c.db.ActiveSessionCount(sub.Username)
	if err != nil {
		utils.WarnLog("Active session count failed for %s: %v", sub.Username, err)
	}
	now := time.Now()
	ctx.JSON(http.StatusOK, emit.Panel(
		emit.NewUserInfo(sub, ctx.GetString("password"), active, now),
		emit.NewServerInfo(c.PanelConfig, now),
		content,
	))
}

// getEnigma2 serves enigma2.php, the set-top-box bouquet file.
func (c *Config) getEnigma2(ctx *gin.Context) {
	sub := subscriber(ctx)
	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	builder := emit.StreamURLBuilder{
		BaseURL:  c.BaseURL(),
		Username: sub.Username,
		Password: ctx.GetString("password"),
	}
	data := emit.Enigma2(builder, c.M3UFileName, content)

	ctx.Header("Content-Disposition", `attachment; filename="userbouquet.streampanel.tv"`)
	ctx.Data(http.StatusOK, "text/plain", data)
}

func categoriesOf(cats []types.Category, kind string) []types.Category {
	var out []types.Category
	for _, c := range cats {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
