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

package auth

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/lucasduport/stream-panel/pkg/config"
	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// LDAPChecker validates passwords against a directory instead of the
// stored hash. Account state (active, expiry, bouquets) still comes from
// the subscriber row; only the password check is delegated.
type LDAPChecker struct {
	cfg *config.PanelConfig
}

// NewLDAPChecker builds a checker from the panel configuration.
func NewLDAPChecker(cfg *config.PanelConfig) *LDAPChecker {
	return &LDAPChecker{cfg: cfg}
}

// CheckPassword binds with an optional service account, finds the user DN,
// optionally validates group membership, then attempts a user bind.
func (lc *LDAPChecker) CheckPassword(sub *types.Subscriber, password string) bool {
	cfg := lc.cfg
	utils.DebugLog("LDAP DialURL: %s", cfg.LDAPServer)
	l, err := ldap.DialURL(cfg.LDAPServer)
	if err != nil {
		utils.DebugLog("LDAP DialURL error: %v", err)
		return false
	}
	defer l.Close()

	if cfg.LDAPBindDN != "" && cfg.LDAPBindPassword.String() != "" {
		utils.DebugLog("LDAP service bind attempt: DN=%s", cfg.LDAPBindDN)
		if err := l.Bind(cfg.LDAPBindDN, cfg.LDAPBindPassword.String()); err != nil {
			utils.DebugLog("LDAP service bind error: %v", err)
			return false
		}
	}

	filter := fmt.Sprintf("(%s=%s)", cfg.LDAPUserAttribute, ldap.EscapeFilter(sub.Username))
	utils.DebugLog("LDAP search: baseDN=%s, filter=%s", cfg.LDAPBaseDN, filter)
	searchRequest := ldap.NewSearchRequest(
		cfg.LDAPBaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		filter,
		[]string{"dn", cfg.LDAPGroupAttr},
		nil,
	)
	sr, err := l.Search(searchRequest)
	if err != nil {
		utils.DebugLog("LDAP search error: %v", err)
		return false
	}
	if len(sr.Entries) == 0 {
		utils.DebugLog("LDAP search: no entries found for user: %s", sub.Username)
		return false
	}
	userDN := sr.Entries[0].DN

	if cfg.LDAPRequiredGroup != "" && cfg.LDAPGroupAttr != "" {
		hasGroup := false
		for _, entry := range sr.Entries {
			for _, groupValue := range entry.GetAttributeValues(cfg.LDAPGroupAttr) {
				if strings.Contains(strings.ToLower(groupValue), strings.ToLower(cfg.LDAPRequiredGroup)) {
					hasGroup = true
					break
				}
			}
		}
		if !hasGroup {
			utils.DebugLog("LDAP user %s is not a member of required group: %s", sub.Username, cfg.LDAPRequiredGroup)
			return false
		}
	}

	utils.DebugLog("LDAP user bind attempt: DN=%s", userDN)
	if err := l.Bind(userDN, password); err != nil {
		utils.DebugLog("LDAP user bind error: %v", err)
		return false
	}
	return true
}
