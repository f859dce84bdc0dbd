/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// Config of a gateway process, read from <folder>/.cfg
type Config struct {
	FolderPath         string   `json:"folder-path"`          // Folder the configuration was read from
	HTTPServerPort     uint16   `json:"http-server-port"`     // Port of the HTTP server (websocket endpoint + auth routes)
	ReadTimeout        int64    `json:"read-timeout"`         // HTTP read timeout, in seconds
	WriteTimeout       int64    `json:"write-timeout"`        // HTTP write timeout, in seconds
	SecretKey          string   `json:"secret-key"`           // Key of the cookie store
	DBName             string   `json:"db-name"`              // SQLite database file
	LogDirectory       string   `json:"log-directory"`        // Directory where the subsystem log files are created
	EnableLogging      bool     `json:"enable-logging"`       // Logging toggle at startup
	AdminPort          uint16   `json:"admin-port"`           // Port of the gRPC admin service, 0 disables it
	EventFeedAddr      string   `json:"event-feed-addr"`      // ZeroMQ bind address of the event feed, empty disables it
	DefaultMuteSeconds int64    `json:"default-mute-seconds"` // Mute duration used when the moderator gives none
	MaxMessageLength   int      `json:"max-message-length"`   // Maximum size of a message content, in bytes
	HistoryPageSize    int      `json:"history-page-size"`    // Default (and maximum) page size of channel history
	BlockedPlaceholder string   `json:"blocked-placeholder"`  // Content shown in place of a blocked sender's message
	SendBuffer         int      `json:"send-buffer"`          // Outbound queue size of a single connection
	AllowedOrigins     []string `json:"allowed-origins"`      // Origins allowed to open a websocket, empty means same host only
}

// DefaultConfig returns a configuration with every field set to its default
func DefaultConfig() *Config {
	return &Config{
		HTTPServerPort:     8080,
		ReadTimeout:        15,
		WriteTimeout:       15,
		DBName:             "gateway.db",
		LogDirectory:       "logs",
		EnableLogging:      true,
		AdminPort:          0,
		DefaultMuteSeconds: 60,
		MaxMessageLength:   2000,
		HistoryPageSize:    50,
		BlockedPlaceholder: "... 🛑 ...",
		SendBuffer:         256,
	}
}

// LoadConfig reads the .cfg file inside folderPath. Fields missing from the file keep their default value.
func LoadConfig(folderPath string) (*Config, error) {

	file, err := os.OpenFile(filepath.Join(folderPath, ".cfg"), os.O_RDONLY, 0755)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err = json.Unmarshal(payload, config); err != nil {
		return nil, err
	}
	config.FolderPath = folderPath

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the configuration can be used to start a gateway
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("The secret key must be set")
	}
	if c.HTTPServerPort == 0 {
		return fmt.Errorf("The http server port must be set")
	}
	if c.AdminPort != 0 && c.AdminPort == c.HTTPServerPort {
		return fmt.Errorf("Cannot use the same port for http and admin server")
	}
	if c.DefaultMuteSeconds <= 0 {
		return fmt.Errorf("The default mute duration must be positive, got %d", c.DefaultMuteSeconds)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("The maximum message length must be positive, got %d", c.MaxMessageLength)
	}
	if c.HistoryPageSize <= 0 {
		return fmt.Errorf("The history page size must be positive, got %d", c.HistoryPageSize)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("The send buffer must be positive, got %d", c.SendBuffer)
	}
	for _, origin := range c.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || u.Path != "" {
			return fmt.Errorf("The allowed origin {%s} must be in the form scheme://host", origin)
		}
	}
	return nil
}
