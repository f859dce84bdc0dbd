/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Error taxonomy of the gateway. Callers test them with errors.Is, the message carries the detail.
var (
	ErrAuth           = errors.New("Authentication failed")                       // Identity could not be verified
	ErrNotAllowed     = errors.New("Action not allowed")                          // Insufficient role, self moderation, PM restrictions
	ErrNotFound       = errors.New("Not found")                                   // Channel, user or membership missing
	ErrValidation     = errors.New("Invalid request")                             // Malformed input
	ErrInvalidChannel = fmt.Errorf("Invalid channel settings: %w", ErrValidation) // Name or kind constraints violated
)

// Clock returns the current time. Services read time only through it.
type Clock func() time.Time

// storeError translates a repository error, turning a missing record into ErrNotFound
func storeError(err error, format string, v ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, v...), ErrNotFound)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, v...), err)
}
