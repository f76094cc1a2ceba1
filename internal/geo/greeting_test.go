package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGreetingLocalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"country_name": "Germany", "country_code": "DE"}`))
	}))
	defer srv.Close()

	g := NewService(srv.URL, nil).Greeting(context.Background())
	if !strings.Contains(g.Text, "willkommen") {
		t.Errorf("Expected German greeting, got %q", g.Text)
	}
	if !strings.HasSuffix(g.Text, "Germany") {
		t.Errorf("Expected country name suffix, got %q", g.Text)
	}
	if g.Country != "DE" {
		t.Errorf("Expected country DE, got %q", g.Country)
	}
}

func TestGreetingUnknownCountryFallsBackToEnglish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"country_name": "Japan", "country_code": "JP"}`))
	}))
	defer srv.Close()

	g := NewService(srv.URL, nil).Greeting(context.Background())
	if g.Text != "CBAg welcomes you from Japan" {
		t.Errorf("Expected English greeting, got %q", g.Text)
	}
}

func TestGreetingLookupFailureIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	g := NewService(srv.URL, nil).Greeting(context.Background())
	if g.Text != defaultGreeting {
		t.Errorf("Expected default greeting on failure, got %q", g.Text)
	}
}

func TestGreetingDisabledWithEmptyURL(t *testing.T) {
	g := NewService("", nil).Greeting(context.Background())
	if g.Text != defaultGreeting {
		t.Errorf("Expected default greeting when disabled, got %q", g.Text)
	}
}
