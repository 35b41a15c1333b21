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
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lucasduport/stream-panel/pkg/auth"
	"github.com/lucasduport/stream-panel/pkg/config"
	"github.com/lucasduport/stream-panel/pkg/database"
	"github.com/lucasduport/stream-panel/pkg/discord"
	"github.com/lucasduport/stream-panel/pkg/resolver"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// staleSessionAge is how long an open stream session counts against the
// connection limit before the sweeper closes it. Playback is a redirect,
// so the panel never observes the player disconnecting.
const staleSessionAge = 4 * time.Hour

// staleProgramAge is how long finished guide entries are kept before the
// sweeper prunes them. get_simple_data_table serves the recent past.
const staleProgramAge = 48 * time.Hour

// Store is the persistence surface the HTTP layer reads and writes. The
// database manager satisfies it; tests substitute fakes.
type Store interface {
	auth.SubscriberStore
	resolver.ContentStore

	CreateSubscriber(sub *types.Subscriber) (int64, error)
	ListSubscribers() ([]types.Subscriber, error)
	DeleteSubscriber(username string) error
	AssignBouquet(username string, bouquetID int64) (*types.Subscriber, error)
	RemoveBouquet(username string, bouquetID int64) error
	SetSubscriberExpiry(username string, expiresAt *time.Time) error

	ListBouquets() ([]types.Bouquet, error)
	CreateBouquet(name string, sortOrder int) (int64, error)

	EpisodesForSeries(seriesID int64) ([]types.Episode, error)
	EpisodeByID(episodeID int64) (*types.Episode, error)

	ProgramsForKeys(keys []string, from, to time.Time) ([]types.EPGProgram, error)
	ShortEPG(key string, now time.Time, limit int) ([]types.EPGProgram, error)
	AllProgramsForKey(key string) ([]types.EPGProgram, error)
	PruneExpiredPrograms(cutoff time.Time) (int64, error)

	OpenStreamSession(s *types.StreamSession) (int64, error)
	CloseStreamSession(sessionID string) error
	ActiveSessionCount(username string) (int, error)
	CloseStaleSessions(maxAge time.Duration) (int64, error)
	StreamHistoryStats() (map[string]interface{}, error)
}

// Config represents the panel server and its wired components.
type Config struct {
	*config.PanelConfig

	db            Store
	dbm           *database.DBManager
	authenticator *auth.Authenticator
	resolver      *resolver.ContentResolver
	notifier      *discord.Notifier
	importFunc    func() error
}

// NewServer initializes the panel server with all necessary components.
func NewServer(cfg *config.PanelConfig) (*Config, error) {
	db, err := database.NewDBManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var checker auth.PasswordChecker
	if cfg.LDAPEnabled {
		utils.InfoLog("LDAP password backend enabled: %s", cfg.LDAPServer)
		checker = auth.NewLDAPChecker(cfg)
	}

	var cache resolver.Cache
	if cfg.RedisURL != "" {
		redisCache, err := resolver.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect resolver cache: %w", err)
		}
		cache = redisCache
	}

	serverConfig := &Config{
		PanelConfig:   cfg,
		db:            db,
		dbm:           db,
		authenticator: auth.NewAuthenticator(db, checker),
		resolver:      resolver.NewContentResolver(db, cache, cfg.ResolverTTL),
	}

	if cfg.DiscordToken.String() != "" {
		utils.InfoLog("Initializing Discord notifier")
		notifier, err := discord.NewNotifier(cfg.DiscordToken.String(), cfg.DiscordChannelID, db)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Discord notifier: %w", err)
		}
		serverConfig.notifier = notifier
	} else {
		utils.InfoLog("Bootstrap: Discord token not set, notifier is DISABLED")
	}

	return serverConfig, nil
}

// Database exposes the underlying manager for wiring components, such
// as the importer, that need the write surface.
func (c *Config) Database() *database.DBManager {
	return c.dbm
}

// Serve runs the stream-panel HTTP API until the listener fails.
func (c *Config) Serve() error {
	utils.InfoLog("[stream-panel] Server is starting...")

	if c.notifier != nil {
		if err := c.notifier.Start(); err != nil {
			return fmt.Errorf("failed to start Discord notifier: %w", err)
		}
		defer c.notifier.Stop()
	}

	go c.sessionSweeper()

	router := gin.Default()
	router.Use(cors.Default())
	utils.InfoLog("Setting up routes and internal API...")

	c.setupInternalAPI(router)
	c.routes(router)

	utils.InfoLog("[stream-panel] Server is ready and listening on :%d", c.HostConfig.Port)
	return router.Run(fmt.Sprintf(":%d", c.HostConfig.Port))
}

// routes wires the Xtream compatibility surface and the redirect
// endpoints players follow for playback.
func (c *Config) routes(router *gin.Engine) {
	router.GET("/player_api.php", c.playerAPI)
	router.POST("/player_api.php", c.playerAPI)
	router.GET("/get.php", c.subscriberAuth(), c.getM3U)
	router.GET("/xmltv.php", c.subscriberAuth(), c.getXMLTV)
	router.GET("/panel_api.php", c.subscriberAuth(), c.getPanel)
	router.GET("/enigma2.php", c.subscriberAuth(), c.getEnigma2)

	router.GET("/:username/:password/:id", c.pathCredentialAuth(), c.streamLive)
	router.GET("/live/:username/:password/:id", c.pathCredentialAuth(), c.streamLive)
	router.GET("/movie/:username/:password/:id", c.pathCredentialAuth(), c.streamMovie)
	router.GET("/series/:username/:password/:id", c.pathCredentialAuth(), c.streamEpisode)

	utils.InfoLog("[stream-panel] Routes initialized")
}

// sessionSweeper ages out open sessions whose clients are long gone so
// they stop counting against connection limits, and prunes guide entries
// that ended long ago.
func (c *Config) sessionSweeper() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		closed, err := c.db.CloseStaleSessions(staleSessionAge)
		if err != nil {
			utils.WarnLog("Stale session sweep failed: %v", err)
		} else if closed > 0 {
			utils.InfoLog("Closed %d stale stream sessions", closed)
		}

		if _, err := c.db.PruneExpiredPrograms(time.Now().Add(-staleProgramAge)); err != nil {
			utils.WarnLog("Guide prune failed: %v", err)
		}
	}
}
