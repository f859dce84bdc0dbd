/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */


package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

func TestOriginChecker(t *testing.T) {
	listed := originChecker([]string{"https://chat.example.com"})
	sameHost := originChecker(nil)

	cases := []struct {
		name    string
		check   func(*http.Request) bool
		origin  string
		allowed bool
	}{
		{"listed origin", listed, "https://chat.example.com", true},
		{"foreign origin", listed, "https://evil.example.net", false},
		{"listed host with other scheme", listed, "http://chat.example.com", false},
		{"request host is not enough when a list is set", listed, "http://chat.local", false},
		{"no origin header", listed, "", true},
		{"same host without a list", sameHost, "http://chat.local", true},
		{"other host without a list", sameHost, "http://evil.example.net", false},
		{"unparsable origin", sameHost, "http://%zz", false},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://chat.local/ws", nil)
		if c.origin != "" {
			r.Header.Set("Origin", c.origin)
		}
		if got := c.check(r); got != c.allowed {
			t.Errorf("%s: GOT[%v], EXPECTED[%v]", c.name, got, c.allowed)
		}
	}
}

func TestServeWSRefusesForeignOrigin(t *testing.T) {
	g := NewGateway(Dependencies{Logger: MockLogger{}, Origins: []string{"https://chat.example.com"}})
	server := httptest.NewServer(http.HandlerFunc(g.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.net"}}
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		ws.Close()
		t.Fatalf("Expected the handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status %d, got %v", http.StatusForbidden, resp)
	}
}
