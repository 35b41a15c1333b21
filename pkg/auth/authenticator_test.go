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
	"testing"
	"time"

	"github.com/lucasduport/stream-panel/pkg/types"
)

type fakeStore struct {
	subscribers map[string]*types.Subscriber
}

func (f *fakeStore) GetSubscriberByUsername(username string) (*types.Subscriber, error) {
	sub, ok := f.subscribers[username]
	if !ok {
		return nil, errors.New("no such subscriber")
	}
	copied := *sub
	return &copied, nil
}

func testStore(t *testing.T) *fakeStore {
	t.Helper()

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	return &fakeStore{subscribers: map[string]*types.Subscriber{
		"alice": {
			Username: "alice",
			Password: hash,
			IsActive: true,
		},
		"legacy": {
			Username: "legacy",
			Password: "plaintextpw",
			IsActive: true,
		},
		"disabled": {
			Username: "disabled",
			Password: "plaintextpw",
			IsActive: false,
		},
		"expired": {
			Username:  "expired",
			Password:  "plaintextpw",
			IsActive:  true,
			ExpiresAt: &past,
		},
		"bob": {
			Username:  "bob",
			Password:  "plaintextpw",
			IsActive:  true,
			ExpiresAt: &future,
		},
	}}
}

func TestAuthenticate(t *testing.T) {
	a := NewAuthenticator(testStore(t), nil)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid bcrypt credentials", username: "alice", password: "s3cret", wantErr: false},
		{name: "valid legacy plaintext credentials", username: "legacy", password: "plaintextpw", wantErr: false},
		{name: "valid with future expiry", username: "bob", password: "plaintextpw", wantErr: false},
		{name: "wrong password", username: "alice", password: "wrong", wantErr: true},
		{name: "unknown user", username: "nobody", password: "s3cret", wantErr: true},
		{name: "disabled account", username: "disabled", password: "plaintextpw", wantErr: true},
		{name: "expired account with correct password", username: "expired", password: "plaintextpw", wantErr: true},
		{name: "missing username", username: "", password: "s3cret", wantErr: true},
		{name: "missing password", username: "alice", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := a.Authenticate(tt.username, tt.password)
			if tt.wantErr {
				// Every failure mode must collapse to the same error.
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
				}
				if sub != nil {
					t.Errorf("Authenticate() returned subscriber on failure: %+v", sub)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error: %v", err)
			}
			if sub.Username != tt.username {
				t.Errorf("Authenticate() subscriber = %q, want %q", sub.Username, tt.username)
			}
		})
	}
}

type denyAllChecker struct{}

func (denyAllChecker) CheckPassword(*types.Subscriber, string) bool { return false }

func TestAuthenticateCustomChecker(t *testing.T) {
	a := NewAuthenticator(testStore(t), denyAllChecker{})

	if _, err := a.Authenticate("alice", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate() with denying checker = %v, want ErrInvalidCredentials", err)
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("round-trip")
	if err != nil {
		t.Fatalf("HashPassword() failed: %v", err)
	}
	if hash == "round-trip" {
		t.Fatal("HashPassword() returned the plaintext")
	}

	sub := &types.Subscriber{Password: hash}
	if !(localChecker{}).CheckPassword(sub, "round-trip") {
		t.Error("CheckPassword() rejected the original password")
	}
	if (localChecker{}).CheckPassword(sub, "other") {
		t.Error("CheckPassword() accepted a wrong password")
	}
}
