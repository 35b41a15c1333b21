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
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents logging levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LogConfig defines logging configuration
var LogConfig = struct {
	DebugLoggingEnabled bool
	Level               LogLevel
	logFile             *os.File
}{
	Level: LevelInfo,
}

func init() {
	LogConfig.DebugLoggingEnabled = os.Getenv("DEBUG_LOGGING") == "true"

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		LogConfig.Level = LevelDebug
	case "info":
		LogConfig.Level = LevelInfo
	case "warn":
		LogConfig.Level = LevelWarn
	case "error":
		LogConfig.Level = LevelError
	default:
		if LogConfig.DebugLoggingEnabled {
			LogConfig.Level = LevelDebug
		}
	}

	if logFilePath := os.Getenv("LOG_FILE"); logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			log.Printf("Error creating log directory: %v", err)
		}
		file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("Error opening log file: %v", err)
		} else {
			LogConfig.logFile = file
			log.SetOutput(file)
		}
	}
}

// CloseLog closes any open log files
func CloseLog() {
	if LogConfig.logFile != nil {
		LogConfig.logFile.Close()
	}
}

// DebugLog logs a debug message if debug logging is enabled
func DebugLog(format string, v ...interface{}) {
	if LogConfig.DebugLoggingEnabled {
		logWithCaller(LevelDebug, format, v...)
	}
}

// InfoLog logs an info message
func InfoLog(format string, v ...interface{}) {
	if LogConfig.Level <= LevelInfo {
		logWithCaller(LevelInfo, format, v...)
	}
}

// WarnLog logs a warning message
func WarnLog(format string, v ...interface{}) {
	if LogConfig.Level <= LevelWarn {
		logWithCaller(LevelWarn, format, v...)
	}
}

// ErrorLog logs an error message
func ErrorLog(format string, v ...interface{}) {
	if LogConfig.Level <= LevelError {
		logWithCaller(LevelError, format, v...)
	}
}

// logWithCaller logs a message prefixed with timestamp, level and caller
func logWithCaller(level LogLevel, format string, v ...interface{}) {
	_, file, line, ok := runtime.Caller(2)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, v...)
	log.Println(fmt.Sprintf("%s [%s] (%s) %s", timestamp, levelToString(level), caller, message))
}

// levelToString converts a LogLevel to its string representation
func levelToString(level LogLevel) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
