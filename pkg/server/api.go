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
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lucasduport/stream-panel/pkg/auth"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// setupInternalAPI configures the admin routes used by operator tooling
// and the Discord notifier. Everything here is behind the API key.
func (c *Config) setupInternalAPI(r *gin.Engine) {
	utils.InfoLog("Setting up internal API endpoints")

	api := r.Group("/api/internal")
	api.Use(c.apiKeyAuth())
	api.Use(gin.Recovery())
	api.Use(func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.ErrorLog("API PANIC RECOVERED: %v\nStack trace: %s", err, debug.Stack())
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, types.APIResponse{
					Success: false,
					Error:   fmt.Sprintf("Internal server error: %v", err),
				})
			}
		}()
		ctx.Next()
	})

	// Subscriber management
	api.GET("/subscribers", c.listSubscribersAPI)
	api.POST("/subscribers", c.createSubscriberAPI)
	api.DELETE("/subscribers/:username", c.deleteSubscriberAPI)
	api.POST("/subscribers/:username/expiry", c.setExpiryAPI)
	api.POST("/subscribers/:username/bouquets/:bouquetid", c.assignBouquetAPI)
	api.DELETE("/subscribers/:username/bouquets/:bouquetid", c.removeBouquetAPI)

	// Bouquet management
	api.GET("/bouquets", c.listBouquetsAPI)
	api.POST("/bouquets", c.createBouquetAPI)

	// Playlist/EPG import
	api.POST("/import", c.triggerImportAPI)

	// Status summary for dashboards and the notifier
	api.GET("/status", c.statusSummary)

	// Force-close one stream session so it stops counting against the
	// owner's connection limit.
	api.DELETE("/sessions/:sessionid", c.closeSessionAPI)

	api.GET("/ping", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, types.APIResponse{
			Success: true,
			Message: "API is running",
			Data: map[string]interface{}{
				"time":           time.Now().String(),
				"db_connected":   c.db != nil,
				"notifier_ready": c.notifier != nil,
			},
		})
	})

	utils.InfoLog("Internal API routes configured successfully")
}

type createSubscriberRequest struct {
	Username       string   `json:"username" binding:"required"`
	Password       string   `json:"password" binding:"required"`
	MaxConnections int      `json:"max_connections"`
	IsTrial        bool     `json:"is_trial"`
	OutputFormats  []string `json:"output_formats"`
	ExpiresAt      *string  `json:"expires_at"`
}

func (c *Config) listSubscribersAPI(ctx *gin.Context) {
	subs, err := c.db.ListSubscribers()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	// Credential hashes stay inside the service.
	for i := range subs {
		subs[i].Password = ""
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: subs})
}

func (c *Config) createSubscriberAPI(ctx *gin.Context) {
	var req createSubscriberRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: "hashing password failed"})
		return
	}

	sub := &types.Subscriber{
		Username:       req.Username,
		Password:       hash,
		Role:           types.RoleGuest,
		IsActive:       true,
		IsTrial:        req.IsTrial,
		MaxConnections: req.MaxConnections,
		OutputFormats:  req.OutputFormats,
	}
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "expires_at must be RFC3339"})
			return
		}
		sub.ExpiresAt = &t
	}

	id, err := c.db.CreateSubscriber(sub)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	utils.InfoLog("Created subscriber %s (id %d)", req.Username, id)
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: map[string]interface{}{"id": id}})
}

// deleteSubscriberAPI removes an account. Accounts with stream history
// are refused with 409; expiry is the deactivation path for those.
func (c *Config) deleteSubscriberAPI(ctx *gin.Context) {
	username := ctx.Param("username")
	if err := c.db.DeleteSubscriber(username); err != nil {
		ctx.JSON(http.StatusConflict, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	c.resolver.Invalidate(username)
	utils.InfoLog("Deleted subscriber %s", username)
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Message: "Subscriber deleted"})
}

func (c *Config) setExpiryAPI(ctx *gin.Context) {
	var req struct {
		ExpiresAt *string `json:"expires_at"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	var expiry *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "expires_at must be RFC3339"})
			return
		}
		expiry = &t
	}

	username := ctx.Param("username")
	if err := c.db.SetSubscriberExpiry(username, expiry); err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Message: "Expiry updated"})
}

// assignBouquetAPI grants a bouquet. A guest becomes a member here, and
// the resolver snapshot is dropped so the change shows up immediately
// instead of after the memoization window.
func (c *Config) assignBouquetAPI(ctx *gin.Context) {
	username := ctx.Param("username")
	var bouquetID int64
	if _, err := fmt.Sscanf(ctx.Param("bouquetid"), "%d", &bouquetID); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "bouquet id must be integer"})
		return
	}

	sub, err := c.db.AssignBouquet(username, bouquetID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	c.resolver.Invalidate(username)

	utils.InfoLog("Assigned bouquet %d to %s (role now %s)", bouquetID, username, sub.Role)
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: map[string]interface{}{"role": sub.Role}})
}

func (c *Config) removeBouquetAPI(ctx *gin.Context) {
	username := ctx.Param("username")
	var bouquetID int64
	if _, err := fmt.Sscanf(ctx.Param("bouquetid"), "%d", &bouquetID); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: "bouquet id must be integer"})
		return
	}

	if err := c.db.RemoveBouquet(username, bouquetID); err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	c.resolver.Invalidate(username)
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Message: "Bouquet removed"})
}

func (c *Config) listBouquetsAPI(ctx *gin.Context) {
	bouquets, err := c.db.ListBouquets()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: bouquets})
}

func (c *Config) createBouquetAPI(ctx *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		SortOrder int    `json:"sort_order"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, types.APIResponse{Success: false, Error: err.Error()})
		return
	}

	id, err := c.db.CreateBouquet(req.Name, req.SortOrder)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: map[string]interface{}{"id": id}})
}

// triggerImportAPI runs the configured playlist import in the background
// and reports acceptance, not completion.
func (c *Config) triggerImportAPI(ctx *gin.Context) {
	if c.importFunc == nil {
		ctx.JSON(http.StatusServiceUnavailable, types.APIResponse{Success: false, Error: "no import source configured"})
		return
	}

	go func() {
		if err := c.importFunc(); err != nil {
			utils.ErrorLog("Import failed: %v", err)
			if c.notifier != nil {
				c.notifier.NotifyImportResult(err)
			}
			return
		}
		if c.notifier != nil {
			c.notifier.NotifyImportResult(nil)
		}
	}()

	ctx.JSON(http.StatusAccepted, types.APIResponse{Success: true, Message: "Import started"})
}

func (c *Config) closeSessionAPI(ctx *gin.Context) {
	sessionID := ctx.Param("sessionid")
	if err := c.db.CloseStreamSession(sessionID); err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	utils.InfoLog("Closed stream session %s", sessionID)
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Message: "Session closed"})
}

func (c *Config) statusSummary(ctx *gin.Context) {
	stats, err := c.db.StreamHistoryStats()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, types.APIResponse{Success: false, Error: err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, types.APIResponse{Success: true, Data: stats})
}

// SetImportFunc wires the playlist import the /api/internal/import
// endpoint triggers.
func (c *Config) SetImportFunc(fn func() error) {
	c.importFunc = fn
}
