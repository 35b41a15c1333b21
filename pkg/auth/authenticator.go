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
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// ErrInvalidCredentials is returned for every authentication failure:
// unknown username, wrong password, disabled account, expired account.
// Callers must not be able to distinguish the cases.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SubscriberStore is the account lookup the authenticator needs. The
// database manager satisfies it.
type SubscriberStore interface {
	GetSubscriberByUsername(username string) (*types.Subscriber, error)
}

// PasswordChecker validates a password for a username. The default
// implementation compares against the stored hash; an LDAP backend may
// replace it while account state still comes from the database.
type PasswordChecker interface {
	CheckPassword(sub *types.Subscriber, password string) bool
}

// Authenticator resolves credentials to an active subscriber.
type Authenticator struct {
	store   SubscriberStore
	checker PasswordChecker
	now     func() time.Time
}

// NewAuthenticator builds an authenticator using local password hashes.
// Pass a non-nil checker to delegate password validation elsewhere.
func NewAuthenticator(store SubscriberStore, checker PasswordChecker) *Authenticator {
	if checker == nil {
		checker = localChecker{}
	}
	return &Authenticator{store: store, checker: checker, now: time.Now}
}

// Authenticate returns the subscriber when the credentials belong to an
// active, unexpired account. Every failure collapses to
// ErrInvalidCredentials so probing cannot reveal which check failed.
func (a *Authenticator) Authenticate(username, password string) (*types.Subscriber, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	sub, err := a.store.GetSubscriberByUsername(username)
	if err != nil || sub == nil {
		utils.DebugLog("Authentication failed, unknown user: %s", username)
		return nil, ErrInvalidCredentials
	}

	if !a.checker.CheckPassword(sub, password) {
		utils.DebugLog("Authentication failed, bad password for user: %s", username)
		return nil, ErrInvalidCredentials
	}

	if !sub.IsActive {
		utils.DebugLog("Authentication failed, disabled account: %s", username)
		return nil, ErrInvalidCredentials
	}

	if sub.Expired(a.now()) {
		utils.DebugLog("Authentication failed, expired account: %s", username)
		return nil, ErrInvalidCredentials
	}

	return sub, nil
}

// localChecker compares against the stored password. New accounts carry a
// bcrypt hash; rows imported from older panels may still hold plaintext.
type localChecker struct{}

func (localChecker) CheckPassword(sub *types.Subscriber, password string) bool {
	if strings.HasPrefix(sub.Password, "$2a$") || strings.HasPrefix(sub.Password, "$2b$") {
		return bcrypt.CompareHashAndPassword([]byte(sub.Password), []byte(password)) == nil
	}
	return sub.Password == password
}

// HashPassword produces the bcrypt hash stored for new subscribers.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", utils.PrintErrorAndReturn(err)
	}
	return string(hash), nil
}
