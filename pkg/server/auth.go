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
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lucasduport/stream-panel/pkg/emit"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

var internalAPIKey string

func init() {
	// Generate a random API key at startup or use from environment
	envKey := os.Getenv("INTERNAL_API_KEY")
	if envKey != "" {
		internalAPIKey = envKey
		utils.InfoLog("Using API key from environment")
	} else {
		internalAPIKey = uuid.New().String()
		utils.InfoLog("Generated new internal API key: %s", internalAPIKey)
	}
}

func GetAPIKey() string {
	return internalAPIKey
}

// apiKeyAuth middleware validates the internal API key
func (c *Config) apiKeyAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader("X-API-Key")
		if key != internalAPIKey {
			utils.DebugLog("API authentication failed - invalid key: %s", utils.MaskString(key))
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, types.APIResponse{
				Success: false,
				Error:   "Invalid API key",
			})
			return
		}
		ctx.Next()
	}
}

const subscriberKey = "subscriber"

// abortInvalidCredentials sends the fixed Xtream 401 body. Every failure
// mode, including missing parameters, gets the same response so callers
// cannot probe account state.
func abortInvalidCredentials(ctx *gin.Context) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, emit.AuthFailure())
}

// subscriberAuth authenticates username/password query or form
// parameters and stashes the subscriber in the request context.
func (c *Config) subscriberAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username, password := credentials(ctx)
		sub, err := c.authenticator.Authenticate(username, password)
		if err != nil {
			utils.DebugLog("Authentication failed for user: %s", username)
			abortInvalidCredentials(ctx)
			return
		}
		ctx.Set(subscriberKey, sub)
		ctx.Set("password", password)
		ctx.Next()
	}
}

// pathCredentialAuth authenticates credentials embedded in the URL path,
// the form players use for playback requests.
func (c *Config) pathCredentialAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sub, err := c.authenticator.Authenticate(ctx.Param("username"), ctx.Param("password"))
		if err != nil {
			utils.DebugLog("Path credentials auth failed: username=%s, IP=%s", ctx.Param("username"), ctx.ClientIP())
			abortInvalidCredentials(ctx)
			return
		}
		ctx.Set(subscriberKey, sub)
		ctx.Next()
	}
}

// credentials reads username/password from the query string or, for
// player_api POSTs, the form body.
func credentials(ctx *gin.Context) (string, string) {
	username := ctx.Query("username")
	password := ctx.Query("password")
	if username == "" && password == "" {
		username = ctx.PostForm("username")
		password = ctx.PostForm("password")
	}
	return username, password
}

// subscriber returns the authenticated subscriber set by the middleware.
func subscriber(ctx *gin.Context) *types.Subscriber {
	v, ok := ctx.Get(subscriberKey)
	if !ok {
		return nil
	}
	sub, _ := v.(*types.Subscriber)
	return sub
}
