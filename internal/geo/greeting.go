// Package geo resolves a localized greeting from the visitor's IP location.
package geo

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// defaultGreeting is shown whenever the lookup fails or the country is
// unknown.
const defaultGreeting = "CBAg welcomes you"

// greetingByCountry maps a country code to the localized greeting prefix.
// Everyone else gets English.
var greetingByCountry = map[string]string{
	"DE": "CBAg heißt Sie willkommen aus",
	"FR": "CBAg vous souhaite la bienvenue depuis",
	"ES": "CBAg te da la bienvenida desde",
	"IT": "CBAg ti dà il benvenuto da",
}

// Greeting is the localized welcome line shown by the widget.
type Greeting struct {
	Text    string `json:"text"`
	Country string `json:"country,omitempty"`
}

// Service performs the geolocation lookup. The lookup is a UX nicety:
// every failure mode degrades silently to the default English greeting.
type Service struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewService creates a greeting service. An empty URL disables lookups.
func NewService(url string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Greeting returns the localized greeting for the caller's location.
func (s *Service) Greeting(ctx context.Context) Greeting {
	fallback := Greeting{Text: defaultGreeting}
	if s.url == "" {
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		s.logger.Debug("greeting lookup request failed", "error", err)
		return fallback
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug("greeting lookup failed", "error", err)
		return fallback
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.logger.Debug("greeting lookup returned non-OK status", "status", resp.StatusCode)
		return fallback
	}

	var payload struct {
		CountryName string `json:"country_name"`
		CountryCode string `json:"country_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Debug("greeting lookup decode failed", "error", err)
		return fallback
	}
	if payload.CountryName == "" {
		return fallback
	}

	prefix, ok := greetingByCountry[payload.CountryCode]
	if !ok {
		prefix = defaultGreeting + " from"
	}
	return Greeting{
		Text:    prefix + " " + payload.CountryName,
		Country: payload.CountryCode,
	}
}
