package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBroadcastWalletReachesOnlyOwner(t *testing.T) {
	hub := NewHub()
	mine := &Client{send: make(chan []byte, 1)}
	other := &Client{send: make(chan []byte, 1)}
	hub.Register("user-1", mine)
	hub.Register("user-2", other)

	hub.BroadcastWallet("user-1", WalletUpdate{Event: "contribution.made", WalletBalance: "90.00", TaxBalance: "0.00"})

	select {
	case payload := <-mine.send:
		var got WalletUpdate
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.WalletBalance != "90.00" || got.Event != "contribution.made" {
			t.Fatalf("unexpected update: %+v", got)
		}
	default:
		t.Fatalf("owner did not receive update")
	}
	if len(other.send) != 0 {
		t.Fatalf("other user must not receive update")
	}
}

func TestBroadcastWalletDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register("user-1", client)
	hub.BroadcastWallet("user-1", WalletUpdate{Event: "a"})
	hub.BroadcastWallet("user-1", WalletUpdate{Event: "b"})
	if len(client.send) != 1 {
		t.Fatalf("expected one buffered update, got %d", len(client.send))
	}
}

func TestUnregisterRemovesEmptyUser(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register("user-1", client)
	hub.Unregister("user-1", client)
	if hub.Connections("user-1") != 0 {
		t.Fatalf("expected no connections")
	}
}

func TestOriginAllowed(t *testing.T) {
	hub := NewHub("https://app.example.com")
	if !hub.originAllowed("https://app.example.com") || hub.originAllowed("https://evil.example.com") {
		t.Fatalf("origin filter misbehaves")
	}
	if !NewHub("*").originAllowed("https://anything.example.com") {
		t.Fatalf("wildcard should accept any origin")
	}
}

func TestServeWSDeliversUpdates(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, hub, "user-1")
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections("user-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.BroadcastWallet("user-1", WalletUpdate{Event: "income.registered", WalletBalance: "100.00"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got WalletUpdate
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.WalletBalance != "100.00" {
		t.Fatalf("unexpected update: %+v", got)
	}
}
