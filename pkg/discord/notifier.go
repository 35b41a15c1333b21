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

// Package discord posts operator notifications to a channel: service
// start, import results and subscribers about to expire. It never reads
// commands; the panel is driven through the internal API.
package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/lucasduport/stream-panel/pkg/types"
	"github.com/lucasduport/stream-panel/pkg/utils"
)

// expiryWindow is how far ahead the daily sweep looks for accounts
// running out.
const expiryWindow = 72 * time.Hour

// ExpiryStore lists accounts whose expiry falls inside a window.
type ExpiryStore interface {
	ExpiringSubscribers(window time.Duration) ([]types.Subscriber, error)
}

// Notifier owns the Discord session and the expiry sweep loop.
type Notifier struct {
	session   *discordgo.Session
	channelID string
	store     ExpiryStore
	stop      chan struct{}
}

// NewNotifier creates a notifier; the session is opened by Start.
func NewNotifier(token, channelID string, store ExpiryStore) (*Notifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(err)
	}
	return &Notifier{
		session:   session,
		channelID: channelID,
		store:     store,
		stop:      make(chan struct{}),
	}, nil
}

// Start opens the Discord connection, announces the service and begins
// the daily expiry sweep.
func (n *Notifier) Start() error {
	if err := n.session.Open(); err != nil {
		return utils.PrintErrorAndReturn(err)
	}
	utils.InfoLog("Discord notifier connected")

	n.send("stream-panel is up")
	go n.expirySweep()
	return nil
}

// Stop terminates the sweep and closes the session.
func (n *Notifier) Stop() {
	close(n.stop)
	if err := n.session.Close(); err != nil {
		utils.WarnLog("Closing Discord session: %v", err)
	}
}

// NotifyImportResult reports a finished import run.
func (n *Notifier) NotifyImportResult(err error) {
	if err != nil {
		n.send(fmt.Sprintf("Playlist import failed: %v", err))
		return
	}
	n.send("Playlist import finished")
}

func (n *Notifier) expirySweep() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-n.stop:
			return
		case <-ticker.C:
			n.reportExpiring()
		}
	}
}

func (n *Notifier) reportExpiring() {
	subs, err := n.store.ExpiringSubscribers(expiryWindow)
	if err != nil {
		utils.WarnLog("Expiry sweep failed: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d subscription(s) expire within %d hours:\n", len(subs), int(expiryWindow.Hours()))
	for _, sub := range subs {
		if sub.ExpiresAt == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", sub.Username, sub.ExpiresAt.Format("2006-01-02 15:04"))
	}
	n.send(b.String())
}

func (n *Notifier) send(message string) {
	if n.channelID == "" {
		return
	}
	if _, err := n.session.ChannelMessageSend(n.channelID, message); err != nil {
		utils.WarnLog("Discord message failed: %v", err)
	}
}
