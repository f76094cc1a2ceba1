// Package identity provides anonymous per-device identity primitives.
//
// The device ID keys the persisted trial state: it identifies the browser,
// not the person. Whether that device is logged in as a registered user is
// tracked separately by the chat session.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// DeviceCookieName is the cookie carrying the anonymous device ID.
	DeviceCookieName = "cbag_device_id"
	deviceCookieTTL  = 365 * 24 * time.Hour
)

type contextKey int

const deviceIDKey contextKey = iota

var deviceIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// DeviceIDFromContext extracts the device ID from the request context.
func DeviceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID returns a context carrying the device ID. Exposed for
// handler tests that bypass the middleware.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

func generateDeviceID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

func getOrCreateDeviceID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(DeviceCookieName); err == nil && isValidDeviceID(c.Value) {
		setDeviceCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateDeviceID()
	if err != nil {
		return "", err
	}
	setDeviceCookie(w, id, isDev)
	return id, nil
}

func setDeviceCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieTTL.Seconds()),
		Expires:  time.Now().Add(deviceCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects the anonymous per-device identity, issuing a cookie on
// first visit. Clearing the cookie resets the persisted trial state; the
// gate is advisory, not a security boundary.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, err := getOrCreateDeviceID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish device identity"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), deviceID)))
		})
	}
}
