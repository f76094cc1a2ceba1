package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cbag-ai/cbag-web/internal/domain"
)

func TestDeliverPostsJSONAndReturnsReply(t *testing.T) {
	var gotBody webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected application/json, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output": "**bold** reply"}`))
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 5*time.Second)
	reply, err := c.Deliver(context.Background(), "what is CBAM?", "registered-maria@example.com")
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if reply != "**bold** reply" {
		t.Errorf("Unexpected reply: %q", reply)
	}
	if gotBody.Input != "what is CBAM?" {
		t.Errorf("Expected input to be forwarded, got %q", gotBody.Input)
	}
	if gotBody.SessionID != "registered-maria@example.com" {
		t.Errorf("Expected session id to be forwarded, got %q", gotBody.SessionID)
	}
}

func TestDeliverNon2xxIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 5*time.Second)
	_, err := c.Deliver(context.Background(), "hi", "guest-1")
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DeliveryError, got %v", err)
	}
	if de.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", de.StatusCode)
	}
}

func TestDeliverTransportFailureIsDeliveryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewWebhookClient(srv.URL, 2*time.Second)
	_, err := c.Deliver(context.Background(), "hi", "guest-1")
	var de *DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("Expected *DeliveryError, got %v", err)
	}
	if de.Unwrap() == nil {
		t.Error("Expected wrapped transport error")
	}
}

func TestDeliverMalformedBodyIsLenient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	}))
	defer srv.Close()

	c := NewWebhookClient(srv.URL, 5*time.Second)
	reply, err := c.Deliver(context.Background(), "hi", "guest-1")
	if err != nil {
		t.Fatalf("Malformed body must not be an error, got: %v", err)
	}
	if reply != FallbackReply {
		t.Errorf("Expected fallback reply, got %q", reply)
	}
}

func TestSessionIDFor(t *testing.T) {
	reg := domain.NewRegistered("maria@example.com", "")
	first := SessionIDFor(reg)
	second := SessionIDFor(reg)
	if first != "registered-maria@example.com" || first != second {
		t.Errorf("Expected stable registered session id, got %q then %q", first, second)
	}

	guest := SessionIDFor(domain.Anonymous())
	if !strings.HasPrefix(guest, "guest-") {
		t.Errorf("Expected guest- prefix, got %q", guest)
	}
}
