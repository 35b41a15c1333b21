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

package utils

import (
	"os"
	"strings"
	"testing"
)

func TestMaskString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "[empty]"},
		{name: "short string keeps first char", input: "secret", want: "s******"},
		{name: "long string keeps edges", input: "supersecretpassword", want: "supe...word"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskString(tt.input); got != tt.want {
				t.Errorf("MaskString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMaskURL(t *testing.T) {
	url := "http://panel.example.com/live/alice/hunter2secret/42.ts"
	got := MaskURL(url)

	if strings.Contains(got, "hunter2secret") {
		t.Errorf("MaskURL() leaked password: %s", got)
	}
	if !strings.Contains(got, "panel.example.com") {
		t.Errorf("MaskURL() mangled host: %s", got)
	}
	if !strings.HasSuffix(got, "/42.ts") {
		t.Errorf("MaskURL() mangled stream path: %s", got)
	}

	// URLs without credential segments pass through untouched.
	plain := "http://panel.example.com/xmltv.php"
	if got := MaskURL(plain); got != plain {
		t.Errorf("MaskURL(%q) = %q, want unchanged", plain, got)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	os.Setenv("STREAM_PANEL_TEST_KEY", "set-value")
	defer os.Unsetenv("STREAM_PANEL_TEST_KEY")

	if got := GetEnvOrDefault("STREAM_PANEL_TEST_KEY", "fallback"); got != "set-value" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "set-value")
	}
	if got := GetEnvOrDefault("STREAM_PANEL_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnvOrDefault() = %q, want %q", got, "fallback")
	}
}
