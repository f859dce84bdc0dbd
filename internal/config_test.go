/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".cfg"), []byte(content), 0644); err != nil {
		t.Fatalf("Could not write config: %v", err)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `{"secret-key": "abc", "http-server-port": 9000}`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.HTTPServerPort != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.HTTPServerPort)
	}
	if cfg.DefaultMuteSeconds != 60 {
		t.Errorf("Default mute should be kept, got %d", cfg.DefaultMuteSeconds)
	}
	if cfg.FolderPath != dir {
		t.Errorf("Folder path was not set")
	}
}

func TestLoadConfigMissingSecret(t *testing.T) {
	dir := writeConfig(t, `{"http-server-port": 9000}`)

	_, err := LoadConfig(dir)
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "The secret key must be set"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestLoadConfigSamePort(t *testing.T) {
	dir := writeConfig(t, `{"secret-key": "abc", "http-server-port": 9000, "admin-port": 9000}`)

	_, err := LoadConfig(dir)
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "Cannot use the same port for http and admin server"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestLoadConfigNegativeMute(t *testing.T) {
	dir := writeConfig(t, `{"secret-key": "abc", "default-mute-seconds": -3}`)

	_, err := LoadConfig(dir)
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "The default mute duration must be positive, got -3"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestLoadConfigOrigins(t *testing.T) {
	dir := writeConfig(t, `{"secret-key": "abc", "allowed-origins": ["https://chat.example.com", "http://localhost:3000"]}`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:3000" {
		t.Errorf("Origins were not read, got %v", cfg.AllowedOrigins)
	}

	dir = writeConfig(t, `{"secret-key": "abc", "allowed-origins": ["chat.example.com/app"]}`)
	_, err = LoadConfig(dir)
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "The allowed origin {chat.example.com/app} must be in the form scheme://host"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Errorf("Expected error on missing file")
	}
}
