/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package data

import (
	"gateway/internal/entity"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenStorageMigratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.db")

	storage, err := OpenStorage(path)
	if err != nil {
		t.Fatalf("Could not open storage: %v", err)
	}
	user := &entity.User{UUID: "u-1", Username: "alice", Nickname: "Alice", CreatedAt: time.Now(),
		Secret: entity.UserSecret{UserUUID: "u-1", Hash: "x"}}
	if err := storage.GetUserRepository().Create(user); err != nil {
		t.Fatalf("Could not create user: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("Could not close storage: %v", err)
	}

	reopened, err := OpenStorage(path)
	if err != nil {
		t.Fatalf("Could not reopen storage: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetUserRepository().GetByUUID("u-1")
	if err != nil {
		t.Fatalf("User should survive a restart: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("Expected alice, got %s", got.Username)
	}
	if got.Secret.Hash != "" {
		t.Errorf("The secret should not be loaded outside of login")
	}
}
