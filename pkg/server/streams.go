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
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	uuid "github.com/satori/go.uuid"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// splitStreamID separates "123.m3u8" into the numeric ID and extension.
func splitStreamID(raw string) (int64, string, error) {
	ext := ""
	if dot := strings.LastIndex(raw, "."); dot >= 0 {
		ext = raw[dot+1:]
		raw = raw[:dot]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, ext, err
}

// admitStream enforces the container format and connection limit checks
// shared by every playback route. Returns false after writing the
// response when the request must not proceed.
func (c *Config) admitStream(ctx *gin.Context, sub *types.Subscriber, ext string) bool {
	if ext != "" && !sub.FormatAllowed(ext) {
		utils.DebugLog("Stream denied, format %q not allowed for %s", ext, sub.Username)
		ctx.AbortWithStatus(http.StatusForbidden)
		return false
	}

	active, err := c.db.ActiveSessionCount(sub.Username)
	if err != nil {
		utils.WarnLog("Active session count failed for %s: %v", sub.Username, err)
		return true
	}
	if sub.MaxConnections > 0 && active >= sub.MaxConnections {
		utils.InfoLog("Stream denied, connection limit reached for %s (%d/%d)", sub.Username, active, sub.MaxConnections)
		ctx.AbortWithStatus(http.StatusForbidden)
		return false
	}
	return true
}

// recordSession logs the playback redirect in stream history. Best
// effort: a failed insert never blocks the redirect.
func (c *Config) recordSession(ctx *gin.Context, sub *types.Subscriber, streamID int64, streamType string) {
	session := &types.StreamSession{
		SessionID:  uuid.NewV4().String(),
		Username:   sub.Username,
		StreamID:   streamID,
		StreamType: streamType,
		StartTime:  time.Now(),
		IPAddress:  ctx.ClientIP(),
		UserAgent:  ctx.Request.UserAgent(),
	}
	if _, err := c.db.OpenStreamSession(session); err != nil {
		utils.WarnLog("Recording stream session failed for %s: %v", sub.Username, err)
	}
}

// streamLive redirects the player to the channel's playback URL.
func (c *Config) streamLive(ctx *gin.Context) {
	sub := subscriber(ctx)
	id, ext, err := splitStreamID(ctx.Param("id"))
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	ch, ok := content.ChannelByID(id)
	if !ok {
		utils.DebugLog("Stream %d not in visible set of %s", id, sub.Username)
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	if !c.admitStream(ctx, sub, ext) {
		return
	}
	c.recordSession(ctx, sub, ch.ID, "live")
	ctx.Redirect(http.StatusFound, ch.StreamURL)
}

// streamMovie redirects the player to the movie's playback URL.
func (c *Config) streamMovie(ctx *gin.Context) {
	sub := subscriber(ctx)
	id, ext, err := splitStreamID(ctx.Param("id"))
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	mv, ok := content.MovieByID(id)
	if !ok {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	if !c.admitStream(ctx, sub, ext) {
		return
	}
	c.recordSession(ctx, sub, mv.ID, "movie")
	ctx.Redirect(http.StatusFound, mv.StreamURL)
}

// streamEpisode redirects the player to an episode's playback URL. The
// episode is visible when its series is in the subscriber's set.
func (c *Config) streamEpisode(ctx *gin.Context) {
	sub := subscriber(ctx)
	id, ext, err := splitStreamID(ctx.Param("id"))
	if err != nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	content, err := c.resolver.Resolve(sub)
	if err != nil {
		ctx.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	episode, err := c.db.EpisodeByID(id)
	if err != nil || episode == nil {
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}
	if _, ok := content.SeriesByID(episode.SeriesID); !ok {
		utils.DebugLog("Episode %d belongs to series %d outside the set of %s", id, episode.SeriesID, sub.Username)
		ctx.AbortWithStatus(http.StatusNotFound)
		return
	}

	if !c.admitStream(ctx, sub, ext) {
		return
	}
	c.recordSession(ctx, sub, episode.ID, "series")
	ctx.Redirect(http.StatusFound, episode.StreamURL)
}
