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

package config

import (
	"net/url"
	"strconv"
	"time"
)

// CredentialString is a string that must not leak into logs verbatim.
type CredentialString string

// String returns the raw credential value.
func (s CredentialString) String() string {
	return string(s)
}

// PathEscape returns the credential escaped for use in a URL path segment.
func (s CredentialString) PathEscape() string {
	return url.PathEscape(string(s))
}

// HostConfiguration holds the listen address of the panel.
type HostConfiguration struct {
	Hostname string
	Port     int
}

// PanelConfig is the explicit service configuration. It is built once in
// the cmd layer from flags/env and handed to the server at startup; no
// package-level configuration state exists outside of it.
type PanelConfig struct {
	HostConfig     *HostConfiguration
	AdvertisedPort int
	HTTPS          bool

	// Name advertised in generated playlists and the get.php attachment.
	M3UFileName string

	// ServerTimezone is reported in player_api server_info.
	ServerTimezone string

	// EPGWindow bounds the XMLTV programme export, counted from "now".
	EPGWindow time.Duration

	// ResolverTTL is the per-subscriber content memoization window.
	ResolverTTL time.Duration

	// RedisURL enables the Redis resolver cache backend when non-empty.
	RedisURL string

	// LDAP password backend (account state still comes from the database).
	LDAPEnabled       bool
	LDAPServer        string
	LDAPBaseDN        string
	LDAPBindDN        string
	LDAPBindPassword  CredentialString
	LDAPUserAttribute string
	LDAPGroupAttr     string
	LDAPRequiredGroup string

	// Discord notifications (disabled when token is empty).
	DiscordToken     CredentialString
	DiscordChannelID string
}

// BaseURL returns the externally visible scheme://host:port of the panel,
// the form embedded in playlists and the panel JSON server_info.
func (c *PanelConfig) BaseURL() string {
	protocol := "http"
	if c.HTTPS {
		protocol = "https"
	}
	u := url.URL{Scheme: protocol, Host: c.HostConfig.Hostname}
	if c.AdvertisedPort != 0 {
		u.Host = u.Host + ":" + strconv.Itoa(c.AdvertisedPort)
	}
	return u.String()
}
