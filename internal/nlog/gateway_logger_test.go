/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runLogger(t *testing.T, logging bool, write func(g *GatewayLogger)) string {
	dir := t.TempDir()
	g, err := NewGatewayLogger(dir, logging)
	if err != nil {
		t.Fatalf("Could not create logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.Run(ctx)
		close(done)
	}()

	write(g)

	cancel()
	<-done

	content, err := os.ReadFile(filepath.Join(dir, "fanout.log"))
	if err != nil {
		t.Fatalf("Could not read log file: %v", err)
	}
	return string(content)
}

func TestSubsystemWritesToItsFile(t *testing.T) {
	content := runLogger(t, true, func(g *GatewayLogger) {
		l, err := g.RegisterSubsystem("fanout")
		if err != nil {
			t.Fatalf("Could not register subsystem: %v", err)
		}
		l.Logf("delivered %d views of %s", 3, "m-1")
	})

	if !strings.Contains(content, "delivered 3 views of m-1") {
		t.Errorf("Expected the formatted line in the file, got %q", content)
	}
	if !strings.Contains(content, "{1}.") {
		t.Errorf("Expected the sequence prefix, got %q", content)
	}
}

func TestPercentInArgumentsIsKept(t *testing.T) {
	content := runLogger(t, true, func(g *GatewayLogger) {
		l, _ := g.RegisterSubsystem("fanout")
		l.Logf("content {%s}", "100%d sure")
	})

	if !strings.Contains(content, "content {100%d sure}") {
		t.Errorf("Arguments were formatted twice, got %q", content)
	}
}

func TestDisabledLoggingWritesNothing(t *testing.T) {
	content := runLogger(t, false, func(g *GatewayLogger) {
		l, _ := g.RegisterSubsystem("fanout")
		l.Logf("should not be there")
	})

	if content != "" {
		t.Errorf("Logging is disabled, file should be empty, got %q", content)
	}
}

func TestGetUnregisteredSubsystem(t *testing.T) {
	g, err := NewGatewayLogger(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Could not create logger: %v", err)
	}

	_, err = g.GetSubsystemLogger("nothing")
	if err == nil {
		t.Fatalf("Expected error...")
	}
	expected := "The subsystem was not registered"
	if err.Error() != expected {
		t.Errorf("Another error was supposed to happen. GOT[%s], EXPECTED[%s]", err.Error(), expected)
	}
}

func TestSequenceClock(t *testing.T) {
	c := NewSequenceClock()
	if c.Next() != 1 || c.Next() != 2 {
		t.Errorf("Clock should count from 1")
	}
	if c.Snapshot() != 2 {
		t.Errorf("Snapshot should not modify the clock, got %d", c.Snapshot())
	}
}
